package domain

// StatusOK is the status code a healthy plugin reports. StatusHostFault is
// assigned by the host when a call into the plugin failed.
const (
	StatusOK        = 0
	StatusHostFault = -1
)

type JointRole string

const (
	JointHead          JointRole = "head"
	JointNeck          JointRole = "neck"
	JointSpineShoulder JointRole = "spine_shoulder"
	JointSpineMiddle   JointRole = "spine_middle"
	JointSpineWaist    JointRole = "spine_waist"
	JointShoulderLeft  JointRole = "shoulder_left"
	JointElbowLeft     JointRole = "elbow_left"
	JointWristLeft     JointRole = "wrist_left"
	JointHandLeft      JointRole = "hand_left"
	JointShoulderRight JointRole = "shoulder_right"
	JointElbowRight    JointRole = "elbow_right"
	JointWristRight    JointRole = "wrist_right"
	JointHandRight     JointRole = "hand_right"
	JointHipLeft       JointRole = "hip_left"
	JointKneeLeft      JointRole = "knee_left"
	JointAnkleLeft     JointRole = "ankle_left"
	JointFootLeft      JointRole = "foot_left"
	JointHipRight      JointRole = "hip_right"
	JointKneeRight     JointRole = "knee_right"
	JointAnkleRight    JointRole = "ankle_right"
	JointFootRight     JointRole = "foot_right"
	// JointManual asks the user to assign the role.
	JointManual JointRole = "manual"
)

var knownJointRoles = map[JointRole]struct{}{
	JointHead: {}, JointNeck: {}, JointSpineShoulder: {}, JointSpineMiddle: {}, JointSpineWaist: {},
	JointShoulderLeft: {}, JointElbowLeft: {}, JointWristLeft: {}, JointHandLeft: {},
	JointShoulderRight: {}, JointElbowRight: {}, JointWristRight: {}, JointHandRight: {},
	JointHipLeft: {}, JointKneeLeft: {}, JointAnkleLeft: {}, JointFootLeft: {},
	JointHipRight: {}, JointKneeRight: {}, JointAnkleRight: {}, JointFootRight: {},
	JointManual: {},
}

func (r JointRole) Valid() bool {
	_, ok := knownJointRoles[r]
	return ok
}

// OrientationJoints must all be tracked for app-driven orientation.
var OrientationJoints = []JointRole{
	JointAnkleLeft, JointAnkleRight,
	JointFootLeft, JointFootRight,
	JointKneeLeft, JointKneeRight,
}

type TrackingState string

const (
	TrackingNotTracked TrackingState = "not_tracked"
	TrackingInferred   TrackingState = "inferred"
	TrackingTracked    TrackingState = "tracked"
)

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

var IdentityQuaternion = Quaternion{W: 1}

type Pose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

type TrackedJoint struct {
	Name  string        `json:"name"`
	Role  JointRole     `json:"role"`
	Pose  Pose          `json:"pose"`
	State TrackingState `json:"state"`
}

type TrackerType string

const (
	TrackerWaist         TrackerType = "waist"
	TrackerLeftFoot      TrackerType = "left_foot"
	TrackerRightFoot     TrackerType = "right_foot"
	TrackerLeftKnee      TrackerType = "left_knee"
	TrackerRightKnee     TrackerType = "right_knee"
	TrackerLeftElbow     TrackerType = "left_elbow"
	TrackerRightElbow    TrackerType = "right_elbow"
	TrackerChest         TrackerType = "chest"
	TrackerLeftShoulder  TrackerType = "left_shoulder"
	TrackerRightShoulder TrackerType = "right_shoulder"
	TrackerLeftHand      TrackerType = "left_hand"
	TrackerRightHand     TrackerType = "right_hand"
	TrackerHead          TrackerType = "head"
)

// MandatoryTrackers are hosted by every service.
var MandatoryTrackers = []TrackerType{TrackerWaist, TrackerLeftFoot, TrackerRightFoot}

// TrackerForJoint maps a device joint role to the tracker it drives.
func TrackerForJoint(role JointRole) (TrackerType, bool) {
	switch role {
	case JointSpineWaist:
		return TrackerWaist, true
	case JointFootLeft, JointAnkleLeft:
		return TrackerLeftFoot, true
	case JointFootRight, JointAnkleRight:
		return TrackerRightFoot, true
	case JointKneeLeft:
		return TrackerLeftKnee, true
	case JointKneeRight:
		return TrackerRightKnee, true
	case JointElbowLeft:
		return TrackerLeftElbow, true
	case JointElbowRight:
		return TrackerRightElbow, true
	case JointSpineShoulder:
		return TrackerChest, true
	case JointShoulderLeft:
		return TrackerLeftShoulder, true
	case JointShoulderRight:
		return TrackerRightShoulder, true
	case JointHandLeft:
		return TrackerLeftHand, true
	case JointHandRight:
		return TrackerRightHand, true
	case JointHead:
		return TrackerHead, true
	default:
		return "", false
	}
}

type Tracker struct {
	Serial  string        `json:"serial"`
	Role    TrackerType   `json:"role"`
	Pose    Pose          `json:"pose"`
	State   TrackingState `json:"state"`
	Enabled bool          `json:"enabled"`
}

type TrackerResult struct {
	Tracker Tracker `json:"tracker"`
	Success bool    `json:"success"`
}

// AlignResults pairs every input tracker with the reply for the same serial.
// Inputs without a matching reply fail.
func AlignResults(in []Tracker, replies []TrackerResult) []TrackerResult {
	bySerial := make(map[string][]TrackerResult, len(replies))
	for _, reply := range replies {
		bySerial[reply.Tracker.Serial] = append(bySerial[reply.Tracker.Serial], reply)
	}
	out := make([]TrackerResult, len(in))
	for i, tracker := range in {
		queue := bySerial[tracker.Serial]
		if len(queue) == 0 {
			out[i] = TrackerResult{Tracker: tracker}
			continue
		}
		out[i] = queue[0]
		bySerial[tracker.Serial] = queue[1:]
	}
	return out
}

// FailAll reports every tracker as failed.
func FailAll(in []Tracker) []TrackerResult {
	out := make([]TrackerResult, len(in))
	for i, tracker := range in {
		out[i] = TrackerResult{Tracker: tracker}
	}
	return out
}

// ComposeTrackers builds one tracker per supported type from the device
// joints. The first joint mapped to a type drives it; unsupported types are
// left out.
func ComposeTrackers(joints []TrackedJoint, supported []TrackerType) []Tracker {
	allowed := make(map[TrackerType]struct{}, len(supported))
	for _, t := range supported {
		allowed[t] = struct{}{}
	}
	assigned := make(map[TrackerType]struct{}, len(supported))
	var out []Tracker
	for _, joint := range joints {
		role, ok := TrackerForJoint(joint.Role)
		if !ok {
			continue
		}
		if _, ok := allowed[role]; !ok {
			continue
		}
		if _, done := assigned[role]; done {
			continue
		}
		assigned[role] = struct{}{}
		out = append(out, Tracker{
			Serial:  TrackerSerial(role),
			Role:    role,
			Pose:    joint.Pose,
			State:   joint.State,
			Enabled: true,
		})
	}
	return out
}

func TrackerSerial(role TrackerType) string {
	return "trackhost-" + string(role)
}

type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s Status) OK() bool {
	return s.Code == StatusOK
}

type DeviceFlags struct {
	BlocksPositionFilter   bool `json:"blocks_position_filter"`
	OverridesPhysics       bool `json:"overrides_physics"`
	SelfUpdating           bool `json:"self_updating"`
	FlipSupported          bool `json:"flip_supported"`
	AppOrientationDeclared bool `json:"app_orientation_declared"`
	SettingsPanel          bool `json:"settings_panel"`
}

// DeviceState is one poll of a device's live state.
type DeviceState struct {
	Status          Status         `json:"status"`
	Initialized     bool           `json:"initialized"`
	SkeletonTracked bool           `json:"skeleton_tracked"`
	Flags           DeviceFlags    `json:"flags"`
	Joints          []TrackedJoint `json:"joints"`
}

// AppOrientationSupported is derived from this poll only.
func (s DeviceState) AppOrientationSupported() bool {
	return SupportsAppOrientation(s.Flags.AppOrientationDeclared, s.Joints)
}

// SupportsAppOrientation derives the composite orientation capability from
// the declared flag and the joints reported in the same poll.
func SupportsAppOrientation(declared bool, joints []TrackedJoint) bool {
	if !declared {
		return false
	}
	present := make(map[JointRole]struct{}, len(joints))
	for _, joint := range joints {
		present[joint.Role] = struct{}{}
	}
	for _, role := range OrientationJoints {
		if _, ok := present[role]; !ok {
			return false
		}
	}
	return true
}

type ServiceSettings struct {
	AdditionalTrackers      []TrackerType `json:"additional_trackers"`
	RestartOnTrackerChanges bool          `json:"restart_on_tracker_changes"`
	HostVisible             bool          `json:"host_visible"`
	CanAutoStart            bool          `json:"can_auto_start"`
	AutoStart               bool          `json:"auto_start"`
	AutoClose               bool          `json:"auto_close"`
	SettingsPanel           bool          `json:"settings_panel"`
}

// SupportedTrackers is the mandatory set followed by any additional types, without duplicates.
func (s ServiceSettings) SupportedTrackers() []TrackerType {
	out := make([]TrackerType, 0, len(MandatoryTrackers)+len(s.AdditionalTrackers))
	seen := map[TrackerType]struct{}{}
	for _, list := range [][]TrackerType{MandatoryTrackers, s.AdditionalTrackers} {
		for _, tracker := range list {
			if _, ok := seen[tracker]; ok {
				continue
			}
			seen[tracker] = struct{}{}
			out = append(out, tracker)
		}
	}
	return out
}

type ConnectionResult struct {
	Status Status `json:"status"`
	// Detail is whatever the service reports about its runtime (version, peer).
	Detail string `json:"detail"`
}

// SettingsPanel describes a plugin-owned settings surface as plain fields.
type SettingsPanel struct {
	Title  string         `json:"title"`
	Fields []SettingField `json:"fields"`
}

type SettingField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

package domain_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"trackhost/internal/modules/plugin/domain"
)

func orientationJoints() []domain.TrackedJoint {
	joints := make([]domain.TrackedJoint, 0, len(domain.OrientationJoints)+1)
	joints = append(joints, domain.TrackedJoint{Name: "waist", Role: domain.JointSpineWaist})
	for _, role := range domain.OrientationJoints {
		joints = append(joints, domain.TrackedJoint{Name: string(role), Role: role})
	}
	return joints
}

func TestSupportsAppOrientationRequiresFlagAndAllJoints(t *testing.T) {
	t.Parallel()
	joints := orientationJoints()
	require.True(t, domain.SupportsAppOrientation(true, joints))
	require.False(t, domain.SupportsAppOrientation(false, joints))

	for i := 1; i < len(joints); i++ {
		without := append(append([]domain.TrackedJoint{}, joints[:i]...), joints[i+1:]...)
		require.False(t, domain.SupportsAppOrientation(true, without), "missing %s", joints[i].Role)
	}
}

func TestSupportsAppOrientationUnderShuffledMutations(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		joints := orientationJoints()
		rng.Shuffle(len(joints), func(i, j int) { joints[i], joints[j] = joints[j], joints[i] })
		require.True(t, domain.SupportsAppOrientation(true, joints))

		// Drop joints one at a time in random order; the flag must follow presence.
		for len(joints) > 0 {
			idx := rng.Intn(len(joints))
			joints = append(joints[:idx], joints[idx+1:]...)
			require.Equal(t, hasAllOrientationRoles(joints), domain.SupportsAppOrientation(true, joints))
		}
	}
}

func hasAllOrientationRoles(joints []domain.TrackedJoint) bool {
	for _, role := range domain.OrientationJoints {
		found := false
		for _, joint := range joints {
			if joint.Role == role {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestSupportedTrackersIncludesMandatory(t *testing.T) {
	t.Parallel()
	settings := domain.ServiceSettings{AdditionalTrackers: []domain.TrackerType{domain.TrackerLeftKnee, domain.TrackerWaist}}
	require.Equal(t, []domain.TrackerType{
		domain.TrackerWaist, domain.TrackerLeftFoot, domain.TrackerRightFoot, domain.TrackerLeftKnee,
	}, settings.SupportedTrackers())
}

func TestAlignResultsIsOnePerInput(t *testing.T) {
	t.Parallel()
	in := []domain.Tracker{
		{Serial: "a", Role: domain.TrackerWaist},
		{Serial: "b", Role: domain.TrackerLeftFoot},
		{Serial: "c", Role: domain.TrackerRightFoot},
	}
	replies := []domain.TrackerResult{
		{Tracker: domain.Tracker{Serial: "c", Role: domain.TrackerRightFoot}, Success: true},
		{Tracker: domain.Tracker{Serial: "a", Role: domain.TrackerWaist}, Success: false},
		{Tracker: domain.Tracker{Serial: "zzz"}, Success: true},
	}
	out := domain.AlignResults(in, replies)
	require.Len(t, out, 3)
	require.Equal(t, "a", out[0].Tracker.Serial)
	require.False(t, out[0].Success)
	require.Equal(t, "b", out[1].Tracker.Serial)
	require.False(t, out[1].Success)
	require.Equal(t, "c", out[2].Tracker.Serial)
	require.True(t, out[2].Success)

	failed := domain.FailAll(in)
	require.Len(t, failed, 3)
	for i, result := range failed {
		require.Equal(t, in[i], result.Tracker)
		require.False(t, result.Success)
	}
}

func TestTrackerForJoint(t *testing.T) {
	t.Parallel()
	tracker, ok := domain.TrackerForJoint(domain.JointSpineWaist)
	require.True(t, ok)
	require.Equal(t, domain.TrackerWaist, tracker)
	_, ok = domain.TrackerForJoint(domain.JointManual)
	require.False(t, ok)
}

func TestComposeTrackersKeepsSupportedTypesOnce(t *testing.T) {
	t.Parallel()
	joints := []domain.TrackedJoint{
		{Name: "waist", Role: domain.JointSpineWaist, State: domain.TrackingTracked},
		{Name: "left foot", Role: domain.JointFootLeft, State: domain.TrackingTracked},
		{Name: "left ankle", Role: domain.JointAnkleLeft, State: domain.TrackingInferred},
		{Name: "head", Role: domain.JointHead, State: domain.TrackingTracked},
		{Name: "neck", Role: domain.JointNeck, State: domain.TrackingTracked},
	}

	trackers := domain.ComposeTrackers(joints, domain.MandatoryTrackers)

	roles := make([]domain.TrackerType, 0, len(trackers))
	for _, tracker := range trackers {
		roles = append(roles, tracker.Role)
		require.Equal(t, domain.TrackerSerial(tracker.Role), tracker.Serial)
		require.True(t, tracker.Enabled)
	}
	require.Equal(t, []domain.TrackerType{domain.TrackerWaist, domain.TrackerLeftFoot}, roles)
	require.Equal(t, domain.TrackingTracked, trackers[1].State)
}

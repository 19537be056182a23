package dto

import "time"

type PluginInfo struct {
	ID                     string
	GUID                   string
	Name                   string
	Path                   string
	Publisher              string
	Website                string
	UpdateURI              string
	Version                string
	APIVersion             string
	Kind                   string
	Outcome                string
	Severity               string
	Error                  string
	UnresolvedDependencies []string
	Loaded                 bool
	Enabled                bool
	DiscoveredAt           time.Time
}

type ScanReport struct {
	ScanID     string
	Plugins    []PluginInfo
	Reenabled  []string
	StartedAt  time.Time
	FinishedAt time.Time
}

type ToggleResult struct {
	ID        string
	Kind      string
	Requested bool
	Enabled   bool
	Reverted  bool
}

// EnablementChange is published after every settled toggle or reconcile.
type EnablementChange struct {
	ID       string
	Kind     string
	Enabled  bool
	Reverted bool
}

type DoctorResult struct {
	ID                     string
	Name                   string
	Kind                   string
	Outcome                string
	Severity               string
	Error                  string
	UnresolvedDependencies []string
	Enabled                bool
	StatusCode             int
	StatusMessage          string
	AppOrientation         bool
	SupportedTrackers      []string
}

type ConnectionReport struct {
	ServiceID     string
	ServiceName   string
	StatusCode    int
	StatusMessage string
	Detail        string
}

type JointPose struct {
	Name        string
	Role        string
	Position    [3]float64
	Orientation [4]float64
	Tracked     bool
}

package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Contract names a plugin exports to be recognised. Matching is by exact name.
const (
	ContractDevice  = "trackhost.contract.v1.TrackingDevice"
	ContractService = "trackhost.contract.v1.ServiceEndpoint"
)

// APIVersion is the contract version the host speaks. Plugins must share its major.
const APIVersion = "1.0.0"

type Kind string

const (
	KindDevice  Kind = "device"
	KindService Kind = "service"
	KindUnknown Kind = "unknown"
)

func (k Kind) Validate() error {
	switch k {
	case KindDevice, KindService:
		return nil
	default:
		return fmt.Errorf("unknown plugin kind: %s", k)
	}
}

type LoadOutcome string

const (
	OutcomeNoError               LoadOutcome = "no_error"
	OutcomeDuplicateGUID         LoadOutcome = "duplicate_guid"
	OutcomeMissingDependency     LoadOutcome = "missing_dependency"
	OutcomeUnsupportedAPIVersion LoadOutcome = "unsupported_api_version"
	OutcomeCompositionRejected   LoadOutcome = "composition_rejected"
	OutcomeFileSystemError       LoadOutcome = "file_system_error"
	OutcomeUnknown               LoadOutcome = "unknown"
)

type Severity string

const (
	SeverityNone    Severity = ""
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Metadata is what a loaded module reports about itself before its contract is checked.
type Metadata struct {
	GUID       string
	Name       string
	Publisher  string
	Website    string
	UpdateURI  string
	Version    string
	APIVersion string
	Exports    []string
}

func (m Metadata) Validate() error {
	if strings.TrimSpace(m.GUID) == "" {
		return fmt.Errorf("plugin guid is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.APIVersion == "" {
		return fmt.Errorf("plugin api version is required")
	}
	return nil
}

// Kind reports which supported contract the module exports. Device wins when both are exported.
func (m Metadata) Kind() Kind {
	service := false
	for _, name := range m.Exports {
		switch name {
		case ContractDevice:
			return KindDevice
		case ContractService:
			service = true
		}
	}
	if service {
		return KindService
	}
	return KindUnknown
}

// Candidate records one discovery attempt.
type Candidate struct {
	ScanID                 string
	GUID                   string
	Name                   string
	Path                   string
	Directory              string
	Publisher              string
	Website                string
	UpdateURI              string
	Version                string
	APIVersion             string
	Kind                   Kind
	Outcome                LoadOutcome
	Severity               Severity
	Error                  string
	UnresolvedDependencies []string
	DiscoveredAt           time.Time
}

// Loaded reports whether the attempt produced a usable provider.
func (c Candidate) Loaded() bool {
	return c.Outcome == OutcomeNoError
}

// ID is the provider id used by the enablement governor. Failed attempts
// without a reported guid fall back to their path.
func (c Candidate) ID() string {
	if c.GUID != "" {
		return c.GUID
	}
	return c.Path
}

// IsPluginFile reports whether a file name follows the plugin naming convention.
func IsPluginFile(name, prefix string) bool {
	return prefix != "" && strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix))
}

var semverPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// IsCompatibleAPIVersion checks that both versions are semver and share a major version.
func IsCompatibleAPIVersion(pluginVersion, hostVersion string) bool {
	plugin := semverPattern.FindStringSubmatch(pluginVersion)
	host := semverPattern.FindStringSubmatch(hostVersion)
	if plugin == nil || host == nil {
		return false
	}
	return plugin[1] == host[1]
}

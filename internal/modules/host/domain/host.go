package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSeverity = errors.New("unknown log severity")
	ErrUnknownSound    = errors.New("unknown sound")
	ErrStringNotFound  = errors.New("localized string not found")
)

type LogSeverity string

const (
	SeverityFatal   LogSeverity = "fatal"
	SeverityError   LogSeverity = "error"
	SeverityWarning LogSeverity = "warning"
	SeverityInfo    LogSeverity = "info"
)

func (s LogSeverity) Validate() error {
	switch s {
	case SeverityFatal, SeverityError, SeverityWarning, SeverityInfo:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
	}
}

type Sound string

const (
	SoundAppExit                  Sound = "app_exit"
	SoundConfigSaved              Sound = "config_saved"
	SoundFocus                    Sound = "focus"
	SoundInvoke                   Sound = "invoke"
	SoundMoveNext                 Sound = "move_next"
	SoundMovePrevious             Sound = "move_previous"
	SoundShow                     Sound = "show"
	SoundHide                     Sound = "hide"
	SoundCalibrationStart         Sound = "calibration_start"
	SoundCalibrationTick          Sound = "calibration_tick"
	SoundCalibrationPointCaptured Sound = "calibration_point_captured"
	SoundCalibrationAborted       Sound = "calibration_aborted"
	SoundCalibrationComplete      Sound = "calibration_complete"
)

var knownSounds = map[Sound]struct{}{
	SoundAppExit: {}, SoundConfigSaved: {}, SoundFocus: {}, SoundInvoke: {},
	SoundMoveNext: {}, SoundMovePrevious: {}, SoundShow: {}, SoundHide: {},
	SoundCalibrationStart: {}, SoundCalibrationTick: {}, SoundCalibrationPointCaptured: {},
	SoundCalibrationAborted: {}, SoundCalibrationComplete: {},
}

func (s Sound) Validate() error {
	if _, ok := knownSounds[s]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSound, s)
	}
	return nil
}

// JointPose is a read-only copy of one computed application joint.
type JointPose struct {
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
	Tracked     bool       `json:"tracked"`
}

// ExitRequest asks the host to stop. Fatal requests hand off to the crash reporter first.
type ExitRequest struct {
	Message   string
	Requester string
	Fatal     bool
}

package domain

import (
	"errors"

	goerrors "github.com/agilira/go-errors"
)

// Load failure codes, one per non-success LoadOutcome.
const (
	ErrCodeDuplicateGUID         = "LOAD_2101"
	ErrCodeMissingDependency     = "LOAD_2102"
	ErrCodeUnsupportedAPIVersion = "LOAD_2103"
	ErrCodeCompositionRejected   = "LOAD_2104"
	ErrCodeFileSystem            = "LOAD_2105"
	ErrCodeUnknown               = "LOAD_2199"
)

var (
	ErrFacadeShutDown    = errors.New("plugin facade is shut down")
	ErrLifecycleOrder    = errors.New("plugin lifecycle call out of order")
	ErrProviderNotFound  = errors.New("provider not found")
	ErrContractMissing   = errors.New("module does not export the requested contract")
	ErrReplyTimeout      = errors.New("plugin reply timed out")
	ErrPluginPanic       = errors.New("plugin call panicked")
	ErrInvalidJointIndex = errors.New("joint index out of range")
)

var outcomeCodes = map[LoadOutcome]string{
	OutcomeDuplicateGUID:         ErrCodeDuplicateGUID,
	OutcomeMissingDependency:     ErrCodeMissingDependency,
	OutcomeUnsupportedAPIVersion: ErrCodeUnsupportedAPIVersion,
	OutcomeCompositionRejected:   ErrCodeCompositionRejected,
	OutcomeFileSystemError:       ErrCodeFileSystem,
	OutcomeUnknown:               ErrCodeUnknown,
}

var outcomeMessages = map[LoadOutcome]string{
	OutcomeDuplicateGUID:         "A plugin with the same identifier is already loaded",
	OutcomeMissingDependency:     "The plugin could not resolve one of its dependencies",
	OutcomeUnsupportedAPIVersion: "The plugin targets an unsupported contract version",
	OutcomeCompositionRejected:   "The plugin does not implement a supported contract correctly",
	OutcomeFileSystemError:       "The plugin binary is missing or unreadable",
	OutcomeUnknown:               "The plugin failed to load",
}

// NewLoadError builds a typed load failure for path. cause may be nil.
func NewLoadError(outcome LoadOutcome, path string, cause error) *goerrors.Error {
	code, ok := outcomeCodes[outcome]
	if !ok {
		outcome = OutcomeUnknown
		code = ErrCodeUnknown
	}
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.ErrorCode(code), "plugin load failed: "+string(outcome))
	} else {
		err = goerrors.New(goerrors.ErrorCode(code), "plugin load failed: "+string(outcome))
	}
	return err.
		WithUserMessage(outcomeMessages[outcome]).
		WithContext("path", path).
		WithContext("outcome", string(outcome)).
		WithSeverity(string(SeverityError))
}

// OutcomeOf maps an error produced while loading or probing a module onto the
// closed outcome taxonomy. Untyped errors are Unknown.
func OutcomeOf(err error) LoadOutcome {
	if err == nil {
		return OutcomeNoError
	}
	var typed *goerrors.Error
	if !errors.As(err, &typed) {
		return OutcomeUnknown
	}
	for outcome, code := range outcomeCodes {
		if string(typed.Code) == code {
			return outcome
		}
	}
	return OutcomeUnknown
}

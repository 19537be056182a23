package domain

type LifecycleState string

const (
	StateDiscovered  LifecycleState = "discovered"
	StateLoaded      LifecycleState = "loaded"
	StateInitialized LifecycleState = "initialized"
	StateActive      LifecycleState = "active"
	StateShutDown    LifecycleState = "shut_down"
)

// NextState returns the state reached by a lifecycle call, or ErrLifecycleOrder.
// Shutdown is accepted from every state and keeps ShutDown terminal.
func NextState(from LifecycleState, call LifecycleCall) (LifecycleState, error) {
	if from == StateShutDown {
		if call == CallShutdown {
			return StateShutDown, nil
		}
		return from, ErrFacadeShutDown
	}
	switch call {
	case CallOnLoad:
		if from == StateDiscovered {
			return StateLoaded, nil
		}
	case CallInitialize:
		if from == StateLoaded || from == StateInitialized {
			return StateInitialized, nil
		}
	case CallTick:
		if from == StateInitialized || from == StateActive {
			return StateActive, nil
		}
	case CallShutdown:
		return StateShutDown, nil
	}
	return from, ErrLifecycleOrder
}

type LifecycleCall string

const (
	CallOnLoad     LifecycleCall = "on_load"
	CallInitialize LifecycleCall = "initialize"
	CallTick       LifecycleCall = "tick"
	CallShutdown   LifecycleCall = "shutdown"
)

package relay

// Phase is the interruption controller's state for one call.
type Phase int

const (
	// PhaseIdle means no AI utterance is in flight.
	PhaseIdle Phase = iota
	// PhaseStreaming means utterance audio is being relayed to the caller.
	PhaseStreaming
	// PhaseInterrupting means a truncation is in flight. The controller
	// leaves this phase synchronously; it never waits for acknowledgment.
	PhaseInterrupting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseStreaming:
		return "STREAMING"
	case PhaseInterrupting:
		return "INTERRUPTING"
	default:
		return "UNKNOWN"
	}
}

var validTransitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseStreaming},
	PhaseStreaming:    {PhaseInterrupting, PhaseIdle},
	PhaseInterrupting: {PhaseIdle},
}

func transitionValid(from, to Phase) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a phase change the table does not allow.
type InvalidTransitionError struct {
	From Phase
	To   Phase
}

func (e *InvalidTransitionError) Error() string {
	return "invalid phase transition from " + e.From.String() + " to " + e.To.String()
}

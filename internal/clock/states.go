package clock

const (
	PhaseIdle       = "idle"
	PhaseLocating   = "locating"
	PhaseResolving  = "resolving"
	PhaseSubmitting = "submitting"
	PhaseError      = "error"
)

// transitionMap lists, per target phase, the phases it may be entered from.
var transitionMap = map[string][]string{
	PhaseLocating:   {PhaseIdle, PhaseError},
	PhaseResolving:  {PhaseLocating},
	PhaseSubmitting: {PhaseLocating, PhaseResolving},
	PhaseIdle:       {PhaseSubmitting},
	PhaseError:      {PhaseLocating, PhaseResolving, PhaseSubmitting},
}

func ValidTransition(to, from string) bool {
	allowed, ok := transitionMap[to]
	if !ok {
		return false
	}
	for _, phase := range allowed {
		if phase == from {
			return true
		}
	}
	return false
}

func busyPhase(phase string) bool {
	return phase == PhaseLocating || phase == PhaseResolving || phase == PhaseSubmitting
}

package build

// Phase is the orchestrator's position in the build state machine. Failed is
// reachable from any phase on a fatal error.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseRendering
	PhaseWriting
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseRendering:
		return "rendering"
	case PhaseWriting:
		return "writing"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

package jobs

// Outcome is the terminal state of a generation job.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeQuota     Outcome = "quota"
	OutcomeCancelled Outcome = "cancelled"
)

// Handle is the opaque view of a submitted job. Callers may wait on Done and
// read the Outcome afterwards; nothing else about the job is observable.
type Handle struct {
	id      string
	done    chan struct{}
	outcome Outcome
}

// ID returns the job's correlation identifier.
func (h *Handle) ID() string {
	return h.id
}

// Done is closed when the job reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Outcome is valid only after Done is closed.
func (h *Handle) Outcome() Outcome {
	return h.outcome
}

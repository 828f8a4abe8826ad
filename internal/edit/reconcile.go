package edit

import "errors"

// State is the save state of a session.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// ErrSaveInProgress is returned when a save starts while another is in flight.
var ErrSaveInProgress = errors.New("save already in progress")

// Reconciler tracks one save attempt at a time:
// Idle -> Submitting -> Succeeded | Failed -> Idle.
type Reconciler struct {
	state  State
	err    error
	result *Result
}

// Begin moves to Submitting. Terminal states are left implicitly.
func (r *Reconciler) Begin() error {
	if r.state == Submitting {
		return ErrSaveInProgress
	}
	r.state = Submitting
	r.err = nil
	r.result = nil
	return nil
}

// Succeed records a committed result.
func (r *Reconciler) Succeed(res *Result) {
	r.state = Succeeded
	r.result = res
}

// Fail records a failed attempt. The session remains usable.
func (r *Reconciler) Fail(err error) {
	r.state = Failed
	r.err = err
}

// Acknowledge returns a finished attempt to Idle.
func (r *Reconciler) Acknowledge() {
	if r.state != Submitting {
		r.state = Idle
	}
}

// State returns the current state.
func (r *Reconciler) State() State { return r.state }

// Err returns the error of the last failed attempt.
func (r *Reconciler) Err() error { return r.err }

// Result returns the result of the last successful attempt.
func (r *Reconciler) Result() *Result { return r.result }

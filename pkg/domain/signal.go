package domain

import "strings"

// Reserved signal kinds.
const (
	// KindCallStarted is dispatched before an asynchronous operation is issued.
	KindCallStarted = "CALL_STARTED"

	// KindCallFailed is dispatched when an asynchronous operation fails.
	KindCallFailed = "CALL_FAILED"

	// SuccessSuffix marks any kind as a successful completion.
	SuccessSuffix = "_SUCCESS"
)

// SliceCallsInProgress is the state key owning the in-flight counter.
const SliceCallsInProgress = "callsInProgress"

// Phase is the explicit classification of a signal for call tracking.
type Phase int

const (
	// PhaseNone leaves the counter unchanged.
	PhaseNone Phase = iota
	// PhaseStarted opens a call.
	PhaseStarted
	// PhaseFailed resolves a call that failed.
	PhaseFailed
	// PhaseCompleted resolves a call that succeeded.
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseFailed:
		return "failed"
	case PhaseCompleted:
		return "completed"
	default:
		return "none"
	}
}

// Ends reports whether the phase resolves an in-flight call.
func (p Phase) Ends() bool {
	return p == PhaseFailed || p == PhaseCompleted
}

// Signal is an immutable record dispatched against a store.
type Signal struct {
	Kind    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// NewSignal creates a signal of the given kind.
func NewSignal(kind string) Signal {
	return Signal{Kind: kind}
}

// BeginCall returns the signal dispatched before an asynchronous call.
func BeginCall() Signal {
	return Signal{Kind: KindCallStarted}
}

// CallError returns the signal dispatched when an asynchronous call fails.
func CallError() Signal {
	return Signal{Kind: KindCallFailed}
}

// Succeeded returns the completion signal for the named operation,
// e.g. Succeeded("FETCH_USERS") is FETCH_USERS_SUCCESS.
func Succeeded(name string) Signal {
	if strings.HasSuffix(name, SuccessSuffix) {
		return Signal{Kind: name}
	}
	return Signal{Kind: name + SuccessSuffix}
}

// Phase classifies the signal.
func (s Signal) Phase() Phase {
	return Classify(s.Kind)
}

// Classify maps a signal kind to its Phase. First match wins:
// CALL_STARTED, then CALL_FAILED or any kind ending in _SUCCESS.
// Matching is case-sensitive; a kind shorter than the suffix never matches.
func Classify(kind string) Phase {
	switch {
	case kind == KindCallStarted:
		return PhaseStarted
	case kind == KindCallFailed:
		return PhaseFailed
	case strings.HasSuffix(kind, SuccessSuffix):
		return PhaseCompleted
	}
	return PhaseNone
}

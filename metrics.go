package listpreload

import "time"

// Skip reasons reported to Metrics.ObserveSkip.
const (
	SkipNilItem   = "nil_item"
	SkipNoSize    = "no_size"
	SkipNoRequest = "no_request"
)

// Metrics receives preload events. A nil Metrics disables collection; use the
// Observe helpers below, which are nil-safe.
type Metrics interface {
	// ObserveDispatch records a load started into a target.
	ObserveDispatch()

	// ObserveSkip records an item that was not dispatched and why.
	ObserveSkip(reason string)

	// ObserveCancel records targets cleared on a direction reversal.
	ObserveCancel(targets int)

	// ObserveReversal records a scroll direction flip.
	ObserveReversal()

	// ObserveFingerprint records a fingerprint computation being triggered.
	ObserveFingerprint()

	// ObserveCache records a resident cache lookup.
	ObserveCache(hit bool)

	// ObserveLoad records a finished resource fetch.
	ObserveLoad(duration time.Duration, err error)
}

func observeDispatch(m Metrics) {
	if m != nil {
		m.ObserveDispatch()
	}
}

func observeSkip(m Metrics, reason string) {
	if m != nil {
		m.ObserveSkip(reason)
	}
}

func observeCancel(m Metrics, targets int) {
	if m != nil {
		m.ObserveCancel(targets)
	}
}

func observeReversal(m Metrics) {
	if m != nil {
		m.ObserveReversal()
	}
}

func observeFingerprint(m Metrics) {
	if m != nil {
		m.ObserveFingerprint()
	}
}

// ObserveCache records a resident cache lookup if m is non-nil.
func ObserveCache(m Metrics, hit bool) {
	if m != nil {
		m.ObserveCache(hit)
	}
}

// ObserveLoad records a finished fetch if m is non-nil.
func ObserveLoad(m Metrics, duration time.Duration, err error) {
	if m != nil {
		m.ObserveLoad(duration, err)
	}
}

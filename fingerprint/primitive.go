// Package fingerprint computes content fingerprints for list items off the
// scheduling goroutine and records them so duplicates can be detected.
package fingerprint

// Primitive computes a fingerprint from a resource's raw bytes. It is injected
// where the Worker is built; nothing is registered globally.
type Primitive interface {
	Compute(data []byte) (int32, error)
}

// PrimitiveFunc adapts a function to Primitive.
type PrimitiveFunc func(data []byte) (int32, error)

func (f PrimitiveFunc) Compute(data []byte) (int32, error) {
	return f(data)
}

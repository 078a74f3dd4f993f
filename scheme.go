package encmat

// Scheme is the part of a leveled homomorphic encryption engine the transform
// layer needs. C is the ciphertext handle, S the secret key and K a single
// rotation evaluation key.
type Scheme[C, S, K any] interface {
	// number of plaintext slots per ciphertext
	Slots() int

	// Fingerprint identifies sk so a key store stays bound to one secret key.
	Fingerprint(sk S) ([32]byte, error)

	// GenRotationKeys returns one key per normalized step in [1, Slots()).
	GenRotationKeys(sk S, steps []int) (map[int]K, error)

	// NewEvaluator returns an evaluator owning its buffers, using keys.
	NewEvaluator(keys map[int]K) Evaluator[C]

	// Depth is the number of Mul or MulMask calls ct can still go through.
	// A negative depth means unbounded.
	Depth(ct C) int
}

// Evaluator is a slot-wise arithmetic engine. Results are always fresh
// ciphertexts and inputs are never modified.
type Evaluator[C any] interface {
	// Rotate moves slot i+k into slot i. Negative k rotates right.
	Rotate(ct C, k int) (C, error)

	Add(a, b C) (C, error)

	// Mul is the slot-wise product of two ciphertexts, consuming one level.
	Mul(a, b C) (C, error)

	// MulMask multiplies by a plaintext vector, consuming one level.
	MulMask(ct C, mask []float64) (C, error)
}

package encmat

import (
	"fmt"
	"sync"

	"github.com/zeebo/blake3"
)

// clearScheme is an unencrypted Scheme over plain slot vectors. It checks
// rotation keys like a real engine and counts generated keys. A nonzero
// depth caps the levels every ciphertext reports.
type clearScheme struct {
	slots int
	depth int

	mu        sync.Mutex
	generated int
	fail      error
}

type clearSecret struct {
	name string
}

type clearKey struct {
	step  int
	owner [32]byte
}

func newClearContext(slots int) (*Context[[]float64, *clearSecret, clearKey], *clearScheme) {
	s := &clearScheme{slots: slots}
	return NewContext[[]float64, *clearSecret, clearKey](s, nil, nil), s
}

func (s *clearScheme) Slots() int {
	return s.slots
}

func (s *clearScheme) Fingerprint(sk *clearSecret) ([32]byte, error) {
	if sk == nil {
		return [32]byte{}, fmt.Errorf("nil secret key: %w", ErrInvalidParameter)
	}
	return blake3.Sum256([]byte(sk.name)), nil
}

func (s *clearScheme) GenRotationKeys(sk *clearSecret, steps []int) (map[int]clearKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	fp, err := s.Fingerprint(sk)
	if err != nil {
		return nil, err
	}
	keys := map[int]clearKey{}
	for _, k := range steps {
		keys[k] = clearKey{step: k, owner: fp}
	}
	s.generated += len(steps)
	return keys, nil
}

func (s *clearScheme) generatedKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated
}

func (s *clearScheme) Depth([]float64) int {
	if s.depth == 0 {
		return -1
	}
	return s.depth
}

func (s *clearScheme) NewEvaluator(keys map[int]clearKey) Evaluator[[]float64] {
	return clearEvaluator{slots: s.slots, keys: keys}
}

type clearEvaluator struct {
	slots int
	keys  map[int]clearKey
}

func (e clearEvaluator) check(v []float64) error {
	if len(v) != e.slots {
		return fmt.Errorf("%d values for %d slots", len(v), e.slots)
	}
	return nil
}

func (e clearEvaluator) Rotate(ct []float64, k int) ([]float64, error) {
	if err := e.check(ct); err != nil {
		return nil, err
	}
	k = mod(k, e.slots)
	if _, ok := e.keys[k]; !ok && k != 0 {
		return nil, fmt.Errorf("rotation %d: %w", k, ErrMissingRotationKey)
	}
	out := make([]float64, e.slots)
	for i := range out {
		out[i] = ct[(i+k)%e.slots]
	}
	return out, nil
}

func (e clearEvaluator) zip(a, b []float64, f func(x, y float64) float64) ([]float64, error) {
	if err := e.check(a); err != nil {
		return nil, err
	}
	if err := e.check(b); err != nil {
		return nil, err
	}
	out := make([]float64, e.slots)
	for i := range out {
		out[i] = f(a[i], b[i])
	}
	return out, nil
}

func (e clearEvaluator) Add(a, b []float64) ([]float64, error) {
	return e.zip(a, b, func(x, y float64) float64 { return x + y })
}

func (e clearEvaluator) Mul(a, b []float64) ([]float64, error) {
	return e.zip(a, b, func(x, y float64) float64 { return x * y })
}

func (e clearEvaluator) MulMask(ct []float64, mask []float64) ([]float64, error) {
	return e.Mul(ct, mask)
}

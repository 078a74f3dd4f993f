package encmat

import (
	"fmt"
	"slices"
	"sync"
)

// keyFamily names the operation a rotation key set was generated for
type keyFamily int

const (
	familySigma keyFamily = iota
	familyTau
	familyPhi
	familyPsi
	familyTranspose
	familySquareMatMult
	familySumCumRows
	familySumCumCols
	familyMatVec
)

var familyNames = [...]string{"sigma", "tau", "phi", "psi", "transpose", "square-matmul", "sumcum-rows", "sumcum-cols", "matvec"}

func (f keyFamily) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("family(%d)", int(f))
}

type keySetID struct {
	family  keyFamily
	numCols int
	param   int
}

func (id keySetID) String() string {
	return fmt.Sprintf("%v(numCols=%d, param=%d)", id.family, id.numCols, id.param)
}

// RotationKeyStore caches rotation keys for a single secret key. Key
// generation is serialized; readers always see a complete snapshot.
type RotationKeyStore[K any] struct {
	gen sync.Mutex

	mu    sync.RWMutex
	owner *[32]byte
	sets  map[keySetID][]int
	keys  map[int]K
}

func NewRotationKeyStore[K any]() *RotationKeyStore[K] {
	return &RotationKeyStore[K]{
		sets: map[keySetID][]int{},
		keys: map[int]K{},
	}
}

// snapshot returns the current key map. The map is never written after it
// is published.
func (s *RotationKeyStore[K]) snapshot() map[int]K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys
}

// Has reports whether a key for the normalized step is stored.
func (s *RotationKeyStore[K]) Has(step int) bool {
	_, ok := s.snapshot()[step]
	return ok
}

// Steps returns the stored rotation steps in increasing order.
func (s *RotationKeyStore[K]) Steps() []int {
	keys := s.snapshot()
	steps := make([]int, 0, len(keys))
	for k := range keys {
		steps = append(steps, k)
	}
	slices.Sort(steps)
	return steps
}

// Len is the number of stored keys.
func (s *RotationKeyStore[K]) Len() int {
	return len(s.snapshot())
}

func (s *RotationKeyStore[K]) hasSet(id keySetID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[id]
	return ok
}

// missing returns the steps of a normalized set that have no key
func (s *RotationKeyStore[K]) missing(steps []int) (absent []int) {
	keys := s.snapshot()
	for _, k := range steps {
		if k == 0 {
			continue
		}
		if _, ok := keys[k]; !ok {
			absent = append(absent, k)
		}
	}
	return
}

// install generates the keys of set id that are not stored yet and
// publishes them together. Nothing is published if generation fails.
func (s *RotationKeyStore[K]) install(owner [32]byte, id keySetID, steps []int,
	generate func(missing []int) (map[int]K, error)) (generated int, err error) {

	s.gen.Lock()
	defer s.gen.Unlock()

	s.mu.RLock()
	bound := s.owner
	_, done := s.sets[id]
	s.mu.RUnlock()

	if bound != nil && *bound != owner {
		return 0, fmt.Errorf("key store is bound to another secret key: %w", ErrInvalidParameter)
	}
	if done {
		return 0, nil
	}

	absent := s.missing(steps)
	var fresh map[int]K
	if len(absent) > 0 {
		if fresh, err = generate(absent); err != nil {
			return 0, fmt.Errorf("cannot generate %v: %w", id, err)
		}
		for _, k := range absent {
			if _, ok := fresh[k]; !ok {
				return 0, fmt.Errorf("generator skipped rotation %d of %v: %w", k, id, ErrMissingRotationKey)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make(map[int]K, len(s.keys)+len(fresh))
	for k, v := range s.keys {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}
	s.keys = merged
	s.sets[id] = steps
	if s.owner == nil {
		s.owner = &owner
	}
	return len(fresh), nil
}

// normalizeSteps reduces every step modulo slots, then sorts and dedups.
func normalizeSteps(steps []int, slots int) []int {
	out := make([]int, 0, len(steps))
	for _, k := range steps {
		out = append(out, mod(k, slots))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ensureKeys generates the keys of set id under sk if it is new
func (ctx *Context[C, S, K]) ensureKeys(sk S, id keySetID, steps []int) error {
	fp, err := ctx.scheme.Fingerprint(sk)
	if err != nil {
		return fmt.Errorf("cannot generate %v: %w", id, err)
	}
	steps = normalizeSteps(steps, ctx.Slots())
	if ctx.keys.hasSet(id) {
		ctx.logger.Printf("reusing rotation keys for %v", id)
	}
	n, err := ctx.keys.install(fp, id, steps, func(missing []int) (map[int]K, error) {
		return ctx.scheme.GenRotationKeys(sk, missing)
	})
	if err != nil {
		return err
	}
	if n > 0 {
		ctx.logger.Printf("generated %d rotation keys for %v", n, id)
	}
	return nil
}

// EvalLinTransKeyGen generates the rotation keys of one linear transform.
// numRepeats selects the shift of Phi and Psi and must be 0 otherwise.
func (ctx *Context[C, S, K]) EvalLinTransKeyGen(sk S, numCols int, t LinTransType, numRepeats int) error {
	desc := TransformDescriptor{Type: t, NumCols: numCols, NumRepeats: numRepeats}
	if err := desc.validate(ctx.Slots()); err != nil {
		return err
	}
	return ctx.ensureKeys(sk, keySetID{t.family(), numCols, numRepeats}, desc.RotationIndices(ctx.Slots()))
}

// EvalSquareMatMultRotateKeyGen generates every key EvalMatMulSquare uses.
func (ctx *Context[C, S, K]) EvalSquareMatMultRotateKeyGen(sk S, numCols int) error {
	steps, err := squareMatMulRotations(numCols, ctx.Slots())
	if err != nil {
		return err
	}
	return ctx.ensureKeys(sk, keySetID{familySquareMatMult, numCols, 0}, steps)
}

// EvalSumCumRowsKeyGen generates the keys of the row-wise cumulative sums.
func (ctx *Context[C, S, K]) EvalSumCumRowsKeyGen(sk S, numCols int) error {
	if numCols <= 0 {
		return fmt.Errorf("numCols %d: %w", numCols, ErrInvalidParameter)
	}
	return ctx.ensureKeys(sk, keySetID{familySumCumRows, numCols, 0}, sumCumRowsRotations(numCols))
}

// EvalSumCumColsKeyGen generates the keys of the column-wise cumulative sums.
func (ctx *Context[C, S, K]) EvalSumCumColsKeyGen(sk S, numCols int) error {
	if numCols <= 0 {
		return fmt.Errorf("numCols %d: %w", numCols, ErrInvalidParameter)
	}
	return ctx.ensureKeys(sk, keySetID{familySumCumCols, numCols, 0}, sumCumColsRotations(numCols, ctx.Slots()))
}

// EvalMultMatVecKeyGen generates the keys of one matrix-vector product.
func (ctx *Context[C, S, K]) EvalMultMatVecKeyGen(sk S, enc MatVecEncoding, numCols int) error {
	steps, err := matVecRotations(enc, numCols, ctx.Slots())
	if err != nil {
		return err
	}
	return ctx.ensureKeys(sk, keySetID{familyMatVec, numCols, int(enc)}, steps)
}

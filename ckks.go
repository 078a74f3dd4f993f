package encmat

import (
	"fmt"
	"io"
	"log"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
	"github.com/zeebo/blake3"
	"gonum.org/v1/gonum/mat"
)

// CKKSContext runs matrix operations on lattigo CKKS ciphertexts.
type CKKSContext = Context[*rlwe.Ciphertext, *rlwe.SecretKey, *rlwe.GaloisKey]

// CKKS adapts a lattigo CKKS parameter set and relinearization key to
// Scheme.
type CKKS struct {
	params ckks.Parameters
	rlk    *rlwe.RelinearizationKey
	eval   *ckks.Evaluator
}

func NewCKKS(params ckks.Parameters, rlk *rlwe.RelinearizationKey) *CKKS {
	return &CKKS{
		params: params,
		rlk:    rlk,
		eval:   ckks.NewEvaluator(params, rlwe.NewMemEvaluationKeySet(rlk)),
	}
}

func (s *CKKS) Parameters() ckks.Parameters {
	return s.params
}

func (s *CKKS) Slots() int {
	return s.params.MaxSlots()
}

// Fingerprint hashes the serialized secret key.
func (s *CKKS) Fingerprint(sk *rlwe.SecretKey) (fp [32]byte, err error) {
	if sk == nil {
		return fp, fmt.Errorf("nil secret key: %w", ErrInvalidParameter)
	}
	data, err := sk.MarshalBinary()
	if err != nil {
		return fp, fmt.Errorf("cannot serialize secret key: %w", err)
	}
	return blake3.Sum256(data), nil
}

// GenRotationKeys derives one Galois key per rotation step.
func (s *CKKS) GenRotationKeys(sk *rlwe.SecretKey, steps []int) (map[int]*rlwe.GaloisKey, error) {
	if sk == nil {
		return nil, fmt.Errorf("nil secret key: %w", ErrInvalidParameter)
	}
	galEls := make([]uint64, len(steps))
	for i, k := range steps {
		galEls[i] = s.params.GaloisElement(k)
	}
	gks := rlwe.NewKeyGenerator(s.params).GenGaloisKeysNew(galEls, sk)
	keys := make(map[int]*rlwe.GaloisKey, len(steps))
	for i, k := range steps {
		keys[k] = gks[i]
	}
	return keys, nil
}

// NewEvaluator returns a CKKS evaluator with its own buffers.
func (s *CKKS) NewEvaluator(keys map[int]*rlwe.GaloisKey) Evaluator[*rlwe.Ciphertext] {
	gks := make([]*rlwe.GaloisKey, 0, len(keys))
	for _, gk := range keys {
		gks = append(gks, gk)
	}
	evk := rlwe.NewMemEvaluationKeySet(s.rlk, gks...)
	return &ckksEvaluator{eval: s.eval.ShallowCopy().WithKey(evk), slots: s.Slots()}
}

// Depth counts the rescalings left before ct runs out of moduli.
func (s *CKKS) Depth(ct *rlwe.Ciphertext) int {
	return ct.Level() / s.params.LevelsConsumedPerRescaling()
}

type ckksEvaluator struct {
	eval  *ckks.Evaluator
	slots int
}

func (e *ckksEvaluator) Rotate(ct *rlwe.Ciphertext, k int) (*rlwe.Ciphertext, error) {
	k = mod(k, e.slots)
	if k == 0 {
		return ct.CopyNew(), nil
	}
	return e.eval.RotateNew(ct, k)
}

func (e *ckksEvaluator) Add(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	return e.eval.AddNew(a, b)
}

func (e *ckksEvaluator) Mul(a, b *rlwe.Ciphertext) (out *rlwe.Ciphertext, err error) {
	if out, err = e.eval.MulRelinNew(a, b); err != nil {
		return
	}
	err = e.eval.Rescale(out, out)
	return
}

// the mask is encoded at the scale of the current modulus, so the rescale
// restores the input scale exactly
func (e *ckksEvaluator) MulMask(ct *rlwe.Ciphertext, mask []float64) (out *rlwe.Ciphertext, err error) {
	if out, err = e.eval.MulNew(ct, mask); err != nil {
		return
	}
	err = e.eval.Rescale(out, out)
	return
}

// CKKSKit bundles a freshly generated key pair with the encoder,
// encryptor and decryptor needed to move matrices in and out of a
// CKKSContext.
type CKKSKit struct {
	Params  ckks.Parameters
	SK      *rlwe.SecretKey
	PK      *rlwe.PublicKey
	Scheme  *CKKS
	Context *CKKSContext

	encoder   *ckks.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
}

// NewCKKSKit generates keys for params and a context with an empty key
// store. A nil logger discards output.
func NewCKKSKit(params ckks.Parameters, logger *log.Logger) *CKKSKit {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	kgen := rlwe.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	scheme := NewCKKS(params, kgen.GenRelinearizationKeyNew(sk))
	return &CKKSKit{
		Params:    params,
		SK:        sk,
		PK:        pk,
		Scheme:    scheme,
		Context:   NewContext[*rlwe.Ciphertext, *rlwe.SecretKey, *rlwe.GaloisKey](scheme, nil, logger),
		encoder:   ckks.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		decryptor: rlwe.NewDecryptor(params, sk),
	}
}

// EncryptSlots encodes and encrypts a slot vector at the maximum level.
func (k *CKKSKit) EncryptSlots(values []float64) (*rlwe.Ciphertext, error) {
	if len(values) > k.Params.MaxSlots() {
		return nil, fmt.Errorf("%d values in %d slots: %w", len(values), k.Params.MaxSlots(), ErrShape)
	}
	pt := ckks.NewPlaintext(k.Params, k.Params.MaxLevel())
	if err := k.encoder.Encode(values, pt); err != nil {
		return nil, fmt.Errorf("cannot encode: %w", err)
	}
	ct, err := k.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt: %w", err)
	}
	return ct, nil
}

// DecryptSlots decrypts and decodes all slots of ct.
func (k *CKKSKit) DecryptSlots(ct *rlwe.Ciphertext) ([]float64, error) {
	values := make([]float64, k.Params.MaxSlots())
	if err := k.encoder.Decode(k.decryptor.DecryptNew(ct), values); err != nil {
		return nil, fmt.Errorf("cannot decode: %w", err)
	}
	return values, nil
}

// EncryptMatrix packs m with enc and encrypts it.
func (k *CKKSKit) EncryptMatrix(m mat.Matrix, enc ArrayEncoding) (PackedMatrix[*rlwe.Ciphertext], error) {
	values, err := PackMatrix(m, k.Params.MaxSlots(), enc)
	if err != nil {
		return PackedMatrix[*rlwe.Ciphertext]{}, err
	}
	ct, err := k.EncryptSlots(values)
	if err != nil {
		return PackedMatrix[*rlwe.Ciphertext]{}, err
	}
	rows, cols := m.Dims()
	return NewPackedMatrix(ct, rows, cols, k.Params.MaxSlots(), enc)
}

// EncryptVector packs v into a numCols x numCols block and encrypts it.
func (k *CKKSKit) EncryptVector(v []float64, numCols int, enc ArrayEncoding) (PackedMatrix[*rlwe.Ciphertext], error) {
	values, err := PackVector(v, numCols, k.Params.MaxSlots(), enc)
	if err != nil {
		return PackedMatrix[*rlwe.Ciphertext]{}, err
	}
	ct, err := k.EncryptSlots(values)
	if err != nil {
		return PackedMatrix[*rlwe.Ciphertext]{}, err
	}
	return NewPackedMatrix(ct, numCols, numCols, k.Params.MaxSlots(), enc)
}

// DecryptMatrix decrypts m and unpacks it with its own layout.
func (k *CKKSKit) DecryptMatrix(m PackedMatrix[*rlwe.Ciphertext]) (*mat.Dense, error) {
	values, err := k.DecryptSlots(m.Ciphertext)
	if err != nil {
		return nil, err
	}
	return UnpackMatrix(values, m.Rows, m.Cols, m.Encoding)
}

// DecryptVector decrypts a packed vector block.
func (k *CKKSKit) DecryptVector(m PackedMatrix[*rlwe.Ciphertext]) ([]float64, error) {
	values, err := k.DecryptSlots(m.Ciphertext)
	if err != nil {
		return nil, err
	}
	return UnpackVector(values, m.Cols, m.Encoding)
}

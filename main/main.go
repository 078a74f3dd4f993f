package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/ontanj/encmat"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"gonum.org/v1/gonum/mat"
)

func main() {
	configPath := flag.String("config", "", "YAML file with CKKS parameters")
	numCols := flag.Int("d", 0, "matrix dimension, overrides num_cols")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for the random matrices")
	verbose := flag.Bool("v", false, "log key generation")
	flag.Parse()

	cfg := encmat.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Fatalf("cannot open config: %v", err)
		}
		cfg, err = encmat.LoadConfig(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}
	if *numCols > 0 {
		cfg.NumCols = *numCols
	}
	params, err := cfg.Parameters()
	if err != nil {
		log.Fatal(err)
	}

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "encmat: ", log.LstdFlags)
	}
	startT := time.Now()
	kit := encmat.NewCKKSKit(params, logger)
	d := cfg.NumCols
	fmt.Printf("slots %d, levels %d, d %d, keys in %v\n", params.MaxSlots(), params.MaxLevel(), d, time.Since(startT))

	rng := rand.New(rand.NewSource(*seed))
	a := randomMatrix(rng, d)
	b := randomMatrix(rng, d)
	v := make([]float64, d)
	for i := range v {
		v[i] = rng.Float64()*2 - 1
	}

	run("transpose", func() error {
		return transpose(kit, a)
	})
	run("square matmul", func() error {
		return matMul(kit, a, b)
	})
	for _, enc := range []encmat.MatVecEncoding{encmat.MMCRC, encmat.MMRCR, encmat.MMDiag} {
		run(enc.String(), func() error {
			return matVec(kit, enc, a, v)
		})
	}
	for _, c := range []struct {
		name           string
		byCols, reduce bool
	}{
		{"row cumulative sum", false, false},
		{"row reduction", false, true},
		{"column cumulative sum", true, false},
		{"column reduction", true, true},
	} {
		run(c.name, func() error {
			return cumulative(kit, a, c.byCols, c.reduce)
		})
	}
	fmt.Printf("total %v, %d rotation keys\n", time.Since(startT), kit.Context.Keys().Len())
}

func run(name string, op func() error) {
	startT := time.Now()
	if err := op(); err != nil {
		log.Printf("%s: %v", name, err)
		return
	}
	fmt.Printf("  %-20s %v\n", name, time.Since(startT))
}

func randomMatrix(rng *rand.Rand, d int) *mat.Dense {
	data := make([]float64, d*d)
	for i := range data {
		data[i] = rng.Float64()*2 - 1
	}
	return mat.NewDense(d, d, data)
}

func report(want mat.Matrix, have *mat.Dense) error {
	p, err := encmat.MeasurePrecision(mat.DenseCopyOf(want).RawMatrix().Data, have.RawMatrix().Data)
	if err != nil {
		return err
	}
	fmt.Printf("  %v\n", p)
	return nil
}

func transpose(kit *encmat.CKKSKit, a *mat.Dense) error {
	ct, err := kit.EncryptMatrix(a, encmat.RowMajor)
	if err != nil {
		return err
	}
	if err = kit.Context.EvalLinTransKeyGen(kit.SK, ct.Cols, encmat.Transpose, 0); err != nil {
		return err
	}
	res, err := kit.Context.Transpose(ct)
	if err != nil {
		return err
	}
	have, err := kit.DecryptMatrix(res)
	if err != nil {
		return err
	}
	return report(a.T(), have)
}

func matMul(kit *encmat.CKKSKit, a, b *mat.Dense) error {
	cta, err := kit.EncryptMatrix(a, encmat.RowMajor)
	if err != nil {
		return err
	}
	ctb, err := kit.EncryptMatrix(b, encmat.RowMajor)
	if err != nil {
		return err
	}
	if err = kit.Context.EvalSquareMatMultRotateKeyGen(kit.SK, cta.Cols); err != nil {
		return err
	}
	res, err := kit.Context.MatMul(cta, ctb)
	if err != nil {
		return err
	}
	have, err := kit.DecryptMatrix(res)
	if err != nil {
		return err
	}
	var want mat.Dense
	want.Mul(a, b)
	return report(&want, have)
}

func matVec(kit *encmat.CKKSKit, enc encmat.MatVecEncoding, a *mat.Dense, v []float64) error {
	d, _ := a.Dims()
	layouts := map[encmat.MatVecEncoding][2]encmat.ArrayEncoding{
		encmat.MMCRC:  {encmat.RowMajor, encmat.ColMajor},
		encmat.MMRCR:  {encmat.ColMajor, encmat.RowMajor},
		encmat.MMDiag: {encmat.DiagMajor, encmat.ColMajor},
	}
	ctm, err := kit.EncryptMatrix(a, layouts[enc][0])
	if err != nil {
		return err
	}
	ctv, err := kit.EncryptVector(v, d, layouts[enc][1])
	if err != nil {
		return err
	}
	if err = kit.Context.EvalMultMatVecKeyGen(kit.SK, enc, d); err != nil {
		return err
	}
	res, err := kit.Context.MatVec(enc, ctm, ctv)
	if err != nil {
		return err
	}
	have, err := kit.DecryptVector(res)
	if err != nil {
		return err
	}
	var want mat.VecDense
	want.MulVec(a, mat.NewVecDense(d, v))
	p, err := encmat.MeasurePrecision(want.RawVector().Data, have)
	if err != nil {
		return err
	}
	fmt.Printf("  %v\n", p)
	return nil
}

// cumulative runs one of the running sums of a and compares its totals, or
// every partial sum, against the plaintext result.
func cumulative(kit *encmat.CKKSKit, a *mat.Dense, byCols, reduce bool) error {
	ct, err := kit.EncryptMatrix(a, encmat.RowMajor)
	if err != nil {
		return err
	}
	d := ct.Cols
	// a subring just large enough for the block keeps the column ladder short
	subring := encmat.NextPowerOfTwo(d * d)
	numRows := subring / d

	var out *rlwe.Ciphertext
	if byCols {
		if err = kit.Context.EvalSumCumColsKeyGen(kit.SK, d); err != nil {
			return err
		}
		if reduce {
			out, err = kit.Context.EvalReduceCumCols(ct.Ciphertext, d, subring)
		} else {
			out, err = kit.Context.EvalSumCumCols(ct.Ciphertext, d, subring)
		}
	} else {
		if err = kit.Context.EvalSumCumRowsKeyGen(kit.SK, d); err != nil {
			return err
		}
		if reduce {
			out, err = kit.Context.EvalReduceCumRows(ct.Ciphertext, d, ct.Rows, 0)
		} else {
			out, err = kit.Context.EvalSumCumRows(ct.Ciphertext, d, ct.Rows, 0)
		}
	}
	if err != nil {
		return err
	}
	values, err := kit.DecryptSlots(out)
	if err != nil {
		return err
	}

	sums := mat.DenseCopyOf(a)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			switch {
			case byCols && i > 0:
				sums.Set(i, j, sums.At(i, j)+sums.At(i-1, j))
			case !byCols && j > 0:
				sums.Set(i, j, sums.At(i, j)+sums.At(i, j-1))
			}
		}
	}
	var want, have []float64
	for k := 0; k < d; k++ {
		switch {
		case !reduce:
			want = append(want, sums.RawRowView(k)...)
			have = append(have, values[k*d:(k+1)*d]...)
		case byCols:
			// the totals carry down to the last row of the subring
			want = append(want, sums.At(d-1, k))
			have = append(have, values[(numRows-1)*d+k])
		default:
			want = append(want, sums.At(k, d-1))
			have = append(have, values[k*d+d-1])
		}
	}
	p, err := encmat.MeasurePrecision(want, have)
	if err != nil {
		return err
	}
	fmt.Printf("  %v\n", p)
	return nil
}

package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// kellyEpsilon is the Tikhonov ridge added before the Kelly solve. Large
// enough to stabilize near-singular covariance, small enough to leave
// well-conditioned matrices essentially untouched.
const kellyEpsilon = 1e-6

// pseudoInverse computes the Moore-Penrose pseudo-inverse via SVD, so
// rank-deficient covariance (perfectly correlated series, more assets than
// observations) still yields a usable solution.
func pseudoInverse(a mat.Matrix) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	s := svd.Values(nil)
	r, c := a.Dims()
	maxDim := r
	if c > maxDim {
		maxDim = c
	}

	// Singular values below tol are treated as zero rank.
	tol := 0.0
	if len(s) > 0 {
		tol = s[0] * float64(maxDim) * 1e-12
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	d := mat.NewDense(len(s), len(s), nil)
	for i, sv := range s {
		if sv > tol {
			d.Set(i, i, 1/sv)
		}
	}

	var tmp, pinv mat.Dense
	tmp.Mul(&v, d)
	pinv.Mul(&tmp, u.T())
	return &pinv, nil
}

// solveRidge solves (Σ + εI)x = b. Returns an error on a matrix the
// factorization cannot handle; callers substitute their own fallback.
func solveRidge(sigma *mat.SymDense, b []float64, epsilon float64) ([]float64, error) {
	n := sigma.SymmetricDim()
	ridged := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := sigma.At(i, j)
			if i == j {
				v += epsilon
			}
			ridged.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(ridged); !ok {
		return nil, fmt.Errorf("covariance matrix is not positive definite")
	}

	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(n, b)); err != nil {
		return nil, fmt.Errorf("failed to solve ridged system: %w", err)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// matVec computes m·v into a plain slice.
func matVec(m mat.Matrix, v []float64) []float64 {
	r, _ := m.Dims()
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(len(v), v))
	result := make([]float64, r)
	for i := range result {
		result[i] = out.AtVec(i)
	}
	return result
}

// quadraticForm computes wᵀΣw.
func quadraticForm(sigma *mat.SymDense, w []float64) float64 {
	n := sigma.SymmetricDim()
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			total += w[i] * w[j] * sigma.At(i, j)
		}
	}
	return total
}

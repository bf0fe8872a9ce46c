package lsq

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// normalEquations holds J^T J and the gradient J^T r of one linearisation.
type normalEquations struct {
	n        int
	jtj      *mat.SymDense
	gradient []float64
}

func newNormalEquations(eval *Evaluation, m, n int) *normalEquations {
	jac := mat.NewDense(m, n, eval.Jacobian)

	jtj := mat.NewSymDense(n, nil)
	jtj.SymOuterK(1, jac.T())

	g := mat.NewVecDense(n, nil)
	g.MulVec(jac.T(), mat.NewVecDense(m, eval.Residuals))

	return &normalEquations{
		n:        n,
		jtj:      jtj,
		gradient: g.RawVector().Data,
	}
}

// gradientMaxNorm returns max |(J^T r)_i|.
func (ne *normalEquations) gradientMaxNorm() float64 {
	return floats.Norm(ne.gradient, math.Inf(1))
}

// solveDamped solves (J^T J + lambda I) dx = -J^T r by Cholesky
// factorisation. It returns ErrSingularLinearSystem when the damped matrix is
// not numerically positive definite.
func (ne *normalEquations) solveDamped(lambda float64) ([]float64, error) {
	a := mat.NewSymDense(ne.n, nil)
	a.CopySym(ne.jtj)
	for i := 0; i < ne.n; i++ {
		a.SetSym(i, i, a.At(i, i)+lambda)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, ErrSingularLinearSystem
	}

	rhs := make([]float64, ne.n)
	floats.ScaleTo(rhs, -1, ne.gradient)

	var dx mat.VecDense
	if err := chol.SolveVecTo(&dx, mat.NewVecDense(ne.n, rhs)); err != nil {
		return nil, ErrSingularLinearSystem
	}

	step := make([]float64, ne.n)
	copy(step, dx.RawVector().Data)
	if !allFinite(step) {
		return nil, ErrSingularLinearSystem
	}
	return step, nil
}

// predictedDecrease is the cost reduction promised by the linear model for
// a step dx solving the damped system: 0.5 * dx^T (lambda dx - J^T r).
func (ne *normalEquations) predictedDecrease(dx []float64, lambda float64) float64 {
	return 0.5 * (lambda*floats.Dot(dx, dx) - floats.Dot(dx, ne.gradient))
}

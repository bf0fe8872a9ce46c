package lsq

import "math"

// LossFunction reduces the influence of large residuals.
// Evaluate receives s = |r|^2 for one residual block and returns rho(s) and
// its first derivative. A nil LossFunction is the plain squared loss rho(s) = s.
type LossFunction interface {
	Evaluate(s float64) (rho, drho float64)
}

// HuberLoss is quadratic below A and linear above it.
type HuberLoss struct {
	A float64
}

func (l HuberLoss) Evaluate(s float64) (float64, float64) {
	b := l.A * l.A
	if s > b {
		r := math.Sqrt(s)
		return 2*l.A*r - b, l.A / r
	}
	return s, 1
}

// CauchyLoss grows logarithmically: rho(s) = A^2 log(1 + s/A^2).
type CauchyLoss struct {
	A float64
}

func (l CauchyLoss) Evaluate(s float64) (float64, float64) {
	b := l.A * l.A
	sum := 1 + s/b
	return b * math.Log(sum), 1 / sum
}

// SoftLOneLoss is the smooth L1 approximation rho(s) = 2A^2 (sqrt(1 + s/A^2) - 1).
type SoftLOneLoss struct {
	A float64
}

func (l SoftLOneLoss) Evaluate(s float64) (float64, float64) {
	b := l.A * l.A
	tmp := math.Sqrt(1 + s/b)
	return 2 * b * (tmp - 1), 1 / tmp
}

// robustify rescales residuals and Jacobian rows by sqrt(rho'(s)) so the
// Gauss-Newton model sees the loss, and returns the block's cost 0.5*rho(s).
func robustify(loss LossFunction, residuals, jacobian []float64) float64 {
	var s float64
	for _, r := range residuals {
		s += r * r
	}
	if loss == nil {
		return 0.5 * s
	}

	rho, drho := loss.Evaluate(s)
	scale := math.Sqrt(math.Max(drho, 0))
	for i := range residuals {
		residuals[i] *= scale
	}
	for i := range jacobian {
		jacobian[i] *= scale
	}
	return 0.5 * rho
}

package diff

import "math"

// Scalar is the arithmetic a residual needs so it can be written once and
// instantiated with plain values (Real) for evaluation or with dual numbers
// (Jet) for differentiation.
//
// Go has no operator overloading, so residual code is written with method
// calls:
//
//	func tenMinusX[T Scalar[T]](x, r []T) error {
//		r[0] = Constant[T](10).Sub(x[0])
//		return nil
//	}
type Scalar[T any] interface {
	// Const lifts a plain value into T. The receiver is ignored.
	Const(v float64) T
	// Value returns the primal part.
	Value() float64

	Add(o T) T
	Sub(o T) T
	Mul(o T) T
	Div(o T) T
	Neg() T

	AddConst(c float64) T
	Scale(c float64) T

	Sqrt() T
	Exp() T
	Log() T
	Sin() T
	Cos() T
	Pow(p float64) T
	Abs() T
}

// Constant lifts v into any Scalar type.
func Constant[T Scalar[T]](v float64) T {
	var zero T
	return zero.Const(v)
}

// Real is a plain float64 satisfying Scalar.
type Real float64

func (Real) Const(v float64) Real { return Real(v) }
func (a Real) Value() float64     { return float64(a) }
func (a Real) Add(o Real) Real    { return a + o }
func (a Real) Sub(o Real) Real    { return a - o }
func (a Real) Mul(o Real) Real    { return a * o }
func (a Real) Div(o Real) Real    { return a / o }
func (a Real) Neg() Real          { return -a }

func (a Real) AddConst(c float64) Real { return a + Real(c) }
func (a Real) Scale(c float64) Real    { return a * Real(c) }

func (a Real) Sqrt() Real         { return Real(math.Sqrt(float64(a))) }
func (a Real) Exp() Real          { return Real(math.Exp(float64(a))) }
func (a Real) Log() Real          { return Real(math.Log(float64(a))) }
func (a Real) Sin() Real          { return Real(math.Sin(float64(a))) }
func (a Real) Cos() Real          { return Real(math.Cos(float64(a))) }
func (a Real) Pow(p float64) Real { return Real(math.Pow(float64(a), p)) }
func (a Real) Abs() Real          { return Real(math.Abs(float64(a))) }

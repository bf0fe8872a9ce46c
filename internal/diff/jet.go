package diff

import "math"

// Jet is a forward-mode dual number: a primal value V and its gradient D with
// respect to every parameter of the cost function being differentiated.
//
// A nil D is an all-zero gradient, so constants cost nothing to carry around.
type Jet struct {
	V float64
	D []float64
}

// Variable returns a Jet seeded as the i-th of n independent variables.
func Variable(v float64, i, n int) Jet {
	d := make([]float64, n)
	d[i] = 1
	return Jet{V: v, D: d}
}

func (Jet) Const(v float64) Jet { return Jet{V: v} }
func (a Jet) Value() float64    { return a.V }

func (a Jet) Add(o Jet) Jet { return Jet{V: a.V + o.V, D: combine(1, a.D, 1, o.D)} }
func (a Jet) Sub(o Jet) Jet { return Jet{V: a.V - o.V, D: combine(1, a.D, -1, o.D)} }

func (a Jet) Mul(o Jet) Jet {
	return Jet{V: a.V * o.V, D: combine(o.V, a.D, a.V, o.D)}
}

func (a Jet) Div(o Jet) Jet {
	inv := 1 / o.V
	v := a.V * inv
	return Jet{V: v, D: combine(inv, a.D, -v*inv, o.D)}
}

func (a Jet) Neg() Jet { return a.Scale(-1) }

func (a Jet) AddConst(c float64) Jet { return Jet{V: a.V + c, D: a.D} }
func (a Jet) Scale(c float64) Jet    { return Jet{V: a.V * c, D: combine(c, a.D, 0, nil)} }

func (a Jet) Sqrt() Jet {
	s := math.Sqrt(a.V)
	return a.chain(s, 0.5/s)
}

func (a Jet) Exp() Jet {
	e := math.Exp(a.V)
	return a.chain(e, e)
}

func (a Jet) Log() Jet { return a.chain(math.Log(a.V), 1/a.V) }
func (a Jet) Sin() Jet { return a.chain(math.Sin(a.V), math.Cos(a.V)) }
func (a Jet) Cos() Jet { return a.chain(math.Cos(a.V), -math.Sin(a.V)) }

func (a Jet) Pow(p float64) Jet {
	return a.chain(math.Pow(a.V, p), p*math.Pow(a.V, p-1))
}

// Abs uses the one-sided derivative at zero.
func (a Jet) Abs() Jet {
	if a.V < 0 {
		return a.Neg()
	}
	return a
}

// chain applies a unary function with value v and derivative dv at a.V.
func (a Jet) chain(v, dv float64) Jet {
	return Jet{V: v, D: combine(dv, a.D, 0, nil)}
}

// combine returns ca*a + cb*b treating nil slices as zero vectors.
func combine(ca float64, a []float64, cb float64, b []float64) []float64 {
	n := max(len(a), len(b))
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i, v := range a {
		out[i] = ca * v
	}
	for i, v := range b {
		out[i] += cb * v
	}
	return out
}

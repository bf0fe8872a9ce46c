package lsq

import (
	"fmt"
	"math"

	"github.com/cwbudde/tinylsq/internal/diff"
)

// ResidualBlockID identifies a residual block within its Problem.
type ResidualBlockID int

// parameterBlock is a caller-owned parameter slice registered with a Problem.
// data is a non-owning reference; the solver writes accepted values back to it.
type parameterBlock struct {
	data     []float64
	constant bool
	offset   int // position in the state vector, -1 while constant
	refs     int // residual blocks referencing this block
}

func (pb *parameterBlock) size() int { return len(pb.data) }

// ResidualBlock binds a cost function and an optional loss to one parameter
// block. Its residual and parameter sizes never change after registration.
type ResidualBlock struct {
	id     ResidualBlockID
	cost   diff.CostFunction
	loss   LossFunction
	params *parameterBlock

	rowOffset int
}

// NumResiduals returns the residual dimension.
func (rb *ResidualBlock) NumResiduals() int { return rb.cost.NumResiduals() }

// NumParameters returns the parameter dimension.
func (rb *ResidualBlock) NumParameters() int { return rb.params.size() }

// evaluate runs the cost function on x and applies the loss. jacobian is nil
// when derivatives are not wanted.
func (rb *ResidualBlock) evaluate(x, residuals, jacobian []float64) (float64, error) {
	if err := rb.cost.Evaluate(x, residuals, jacobian); err != nil {
		return 0, fmt.Errorf("residual block %d: %w", rb.id, err)
	}
	if !allFinite(residuals) || !allFinite(jacobian) {
		return 0, fmt.Errorf("residual block %d: %w", rb.id, ErrNonFiniteResidual)
	}
	return robustify(rb.loss, residuals, jacobian), nil
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

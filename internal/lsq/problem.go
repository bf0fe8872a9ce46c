package lsq

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/tinylsq/internal/diff"
)

// Problem aggregates residual blocks and the parameter blocks they reference.
//
// Parameter blocks are identified by the address of their first element, so
// two residual blocks passing the same slice share one set of parameters.
// Slices that partially overlap a registered block are rejected.
// The state vector seen by the solver is the concatenation of all variable
// parameter blocks in registration order.
//
// A Problem is not safe for concurrent use.
type Problem struct {
	blocks map[ResidualBlockID]*ResidualBlock
	order  []ResidualBlockID
	nextID ResidualBlockID

	params     map[*float64]*parameterBlock
	paramOrder []*parameterBlock

	numResiduals  int
	numParameters int
	dirty         bool
}

// NewProblem creates an empty problem.
func NewProblem() *Problem {
	return &Problem{
		blocks: make(map[ResidualBlockID]*ResidualBlock),
		params: make(map[*float64]*parameterBlock),
	}
}

// AddResidualBlock registers cost over params. loss may be nil.
// params is referenced, not copied: the solver reads its initial value from it
// and writes the solution back into it.
func (p *Problem) AddResidualBlock(cost diff.CostFunction, loss LossFunction, params []float64) (ResidualBlockID, error) {
	if cost == nil {
		return 0, errors.New("cost function cannot be nil")
	}
	if m := cost.NumResiduals(); m <= 0 {
		return 0, &DimensionMismatchError{What: "residuals", Expected: 1, Actual: m}
	}
	if n := cost.NumParameters(); n <= 0 || n != len(params) {
		return 0, &DimensionMismatchError{What: "parameters", Expected: n, Actual: len(params)}
	}

	key := &params[0]
	pb, ok := p.params[key]
	if ok && pb.size() != len(params) {
		return 0, &DimensionMismatchError{What: "parameter block", Expected: pb.size(), Actual: len(params)}
	}
	if !ok {
		if other := p.overlapping(params); other != nil {
			return 0, &DimensionMismatchError{What: "parameter block", Expected: other.size(), Actual: len(params)}
		}
		pb = &parameterBlock{data: params, offset: -1}
		p.params[key] = pb
		p.paramOrder = append(p.paramOrder, pb)
	}
	pb.refs++

	id := p.nextID
	p.nextID++
	p.blocks[id] = &ResidualBlock{
		id:     id,
		cost:   cost,
		loss:   loss,
		params: pb,
	}
	p.order = append(p.order, id)
	p.dirty = true

	slog.Debug("Residual block added",
		"id", id,
		"residuals", cost.NumResiduals(),
		"parameters", len(params),
	)
	return id, nil
}

// overlapping returns the registered block sharing memory with params, or
// nil. Exact matches are resolved by the map lookup before this is called.
func (p *Problem) overlapping(params []float64) *parameterBlock {
	for _, pb := range p.paramOrder {
		if containsAddr(pb.data, &params[0]) || containsAddr(params, &pb.data[0]) {
			return pb
		}
	}
	return nil
}

// containsAddr reports whether ptr points at an element of s.
func containsAddr(s []float64, ptr *float64) bool {
	for i := range s {
		if &s[i] == ptr {
			return true
		}
	}
	return false
}

// RemoveResidualBlock drops a block. Parameter blocks no longer referenced
// by any residual block are dropped too.
func (p *Problem) RemoveResidualBlock(id ResidualBlockID) error {
	rb, ok := p.blocks[id]
	if !ok {
		return fmt.Errorf("residual block %d not found", id)
	}
	delete(p.blocks, id)
	for i, other := range p.order {
		if other == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}

	pb := rb.params
	pb.refs--
	if pb.refs == 0 {
		delete(p.params, &pb.data[0])
		for i, other := range p.paramOrder {
			if other == pb {
				p.paramOrder = append(p.paramOrder[:i], p.paramOrder[i+1:]...)
				break
			}
		}
	}
	p.dirty = true
	return nil
}

// SetParameterBlockConstant holds a registered parameter block fixed during
// the solve.
func (p *Problem) SetParameterBlockConstant(params []float64) error {
	return p.setConstant(params, true)
}

// SetParameterBlockVariable undoes SetParameterBlockConstant.
func (p *Problem) SetParameterBlockVariable(params []float64) error {
	return p.setConstant(params, false)
}

func (p *Problem) setConstant(params []float64, constant bool) error {
	if len(params) == 0 {
		return errors.New("parameter block cannot be empty")
	}
	pb, ok := p.params[&params[0]]
	if !ok {
		return errors.New("parameter block is not part of the problem")
	}
	pb.constant = constant
	p.dirty = true
	return nil
}

// IsParameterBlockConstant reports whether params is held fixed.
func (p *Problem) IsParameterBlockConstant(params []float64) bool {
	if len(params) == 0 {
		return false
	}
	pb, ok := p.params[&params[0]]
	return ok && pb.constant
}

// NumResidualBlocks returns the number of registered residual blocks.
func (p *Problem) NumResidualBlocks() int { return len(p.order) }

// NumParameterBlocks returns the number of distinct parameter blocks,
// constant ones included.
func (p *Problem) NumParameterBlocks() int { return len(p.paramOrder) }

// NumResiduals returns the length of the stacked residual vector.
func (p *Problem) NumResiduals() int {
	p.layout()
	return p.numResiduals
}

// NumParameters returns the length of the state vector (variable parameters).
func (p *Problem) NumParameters() int {
	p.layout()
	return p.numParameters
}

func (p *Problem) layout() {
	if !p.dirty {
		return
	}
	offset := 0
	for _, pb := range p.paramOrder {
		if pb.constant {
			pb.offset = -1
			continue
		}
		pb.offset = offset
		offset += pb.size()
	}
	p.numParameters = offset

	row := 0
	for _, id := range p.order {
		rb := p.blocks[id]
		rb.rowOffset = row
		row += rb.NumResiduals()
	}
	p.numResiduals = row
	p.dirty = false
}

// Parameters gathers the variable parameter blocks into a new state vector.
func (p *Problem) Parameters() []float64 {
	p.layout()
	x := make([]float64, p.numParameters)
	for _, pb := range p.paramOrder {
		if pb.offset >= 0 {
			copy(x[pb.offset:], pb.data)
		}
	}
	return x
}

// SetParameters scatters a state vector back into the caller's parameter
// memory.
func (p *Problem) SetParameters(x []float64) {
	p.layout()
	if len(x) != p.numParameters {
		panic(fmt.Sprintf("lsq: state vector has %d entries, problem has %d parameters", len(x), p.numParameters))
	}
	for _, pb := range p.paramOrder {
		if pb.offset >= 0 {
			copy(pb.data, x[pb.offset:pb.offset+pb.size()])
		}
	}
}

// Evaluation is the problem evaluated at one state vector.
type Evaluation struct {
	// Cost is 0.5 * sum of rho(|r_i|^2) over all residual blocks.
	Cost float64
	// Residuals is the stacked (loss-scaled) residual vector.
	Residuals []float64
	// Jacobian is row-major NumResiduals x NumParameters, nil unless requested.
	Jacobian []float64
}

// Evaluate computes the cost, residuals and optionally the Jacobian at x.
// Constant parameter blocks are read from caller memory and contribute no
// Jacobian columns. Errors wrap ErrNonFiniteResidual when any value is not
// finite.
func (p *Problem) Evaluate(x []float64, wantJacobian bool) (*Evaluation, error) {
	p.layout()
	if len(x) != p.numParameters {
		panic(fmt.Sprintf("lsq: state vector has %d entries, problem has %d parameters", len(x), p.numParameters))
	}

	n := p.numParameters
	eval := &Evaluation{Residuals: make([]float64, p.numResiduals)}
	if wantJacobian {
		eval.Jacobian = make([]float64, p.numResiduals*n)
	}

	for _, id := range p.order {
		rb := p.blocks[id]
		pb := rb.params
		m, k := rb.NumResiduals(), pb.size()

		view := pb.data
		if pb.offset >= 0 {
			view = x[pb.offset : pb.offset+k]
		}

		r := eval.Residuals[rb.rowOffset : rb.rowOffset+m]
		var local []float64
		if wantJacobian && pb.offset >= 0 {
			local = make([]float64, m*k)
		}

		cost, err := rb.evaluate(view, r, local)
		if err != nil {
			return nil, err
		}
		eval.Cost += cost

		for i := 0; local != nil && i < m; i++ {
			row := (rb.rowOffset + i) * n
			copy(eval.Jacobian[row+pb.offset:row+pb.offset+k], local[i*k:(i+1)*k])
		}
	}
	if math.IsNaN(eval.Cost) || math.IsInf(eval.Cost, 0) {
		return nil, fmt.Errorf("cost %v: %w", eval.Cost, ErrNonFiniteResidual)
	}
	return eval, nil
}

// Cost returns the total cost at x, or +Inf when x cannot be evaluated.
// It matches the objective signature used by derivative-free optimizers.
func (p *Problem) Cost(x []float64) float64 {
	eval, err := p.Evaluate(x, false)
	if err != nil {
		return math.Inf(1)
	}
	return eval.Cost
}

package operators

import "coredb/register"

// Projection passes the child through unchanged but reorders (and
// possibly narrows) the registers Output returns.
type Projection struct {
	UnaryOperator
	indices []int
	output  []*register.Register
}

func NewProjection(input Operator, indices []int) *Projection {
	return &Projection{UnaryOperator{Input: input}, indices, nil}
}

func (p *Projection) Open() error { return p.Input.Open() }

func (p *Projection) Next() (bool, error) { return p.Input.Next() }

func (p *Projection) Output() []*register.Register {
	src := p.Input.Output()
	out := make([]*register.Register, len(p.indices))
	for i, idx := range p.indices {
		out[i] = src[idx]
	}
	return out
}

func (p *Projection) Close() error { return p.Input.Close() }

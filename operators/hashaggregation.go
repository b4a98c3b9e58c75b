package operators

import "coredb/register"

// AggrFunc is one aggregate computed over an attribute.
type AggrFunc struct {
	Func      AggrFuncKind
	AttrIndex int
}

type AggrFuncKind int

const (
	Min AggrFuncKind = iota
	Max
	Sum
	Count
)

type aggrGroup struct {
	groupRegs  []register.Register
	aggregates []register.Register
}

// HashAggregation groups its child's tuples by GroupByAttrs and computes
// AggrFuncs over each group. On the first Next it consumes the entire
// child building one group per distinct key; subsequent Next calls walk
// the resulting groups in an unspecified order.
type HashAggregation struct {
	UnaryOperator
	groupByAttrs []int
	aggrFuncs    []AggrFunc

	consumed bool
	groups   []aggrGroup
	pos      int
	current  []register.Register
	output   []*register.Register
}

func NewHashAggregation(input Operator, groupByAttrs []int, aggrFuncs []AggrFunc) *HashAggregation {
	return &HashAggregation{UnaryOperator: UnaryOperator{Input: input}, groupByAttrs: groupByAttrs, aggrFuncs: aggrFuncs, pos: -1}
}

func (h *HashAggregation) Open() error {
	h.consumed = false
	h.groups = nil
	h.pos = -1
	h.current = nil
	h.output = nil
	return h.Input.Open()
}

func (h *HashAggregation) Next() (bool, error) {
	if !h.consumed {
		ht := register.NewTupleMap[*aggrGroup]()
		var order []*aggrGroup
		for {
			ok, err := h.Input.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
			src := h.Input.Output()
			groupRegs := make([]register.Register, len(h.groupByAttrs))
			for i, idx := range h.groupByAttrs {
				groupRegs[i] = *src[idx]
			}
			g, ok := ht.Get(groupRegs)
			if !ok {
				aggregates := make([]register.Register, len(h.aggrFuncs))
				for i, f := range h.aggrFuncs {
					switch f.Func {
					case Min, Max:
						aggregates[i] = *src[f.AttrIndex]
					case Sum, Count:
						aggregates[i] = register.FromInt(0)
					}
				}
				g = &aggrGroup{groupRegs: groupRegs, aggregates: aggregates}
				ht.Set(groupRegs, g)
				order = append(order, g)
			}
			for i, f := range h.aggrFuncs {
				switch f.Func {
				case Min:
					if src[f.AttrIndex].Less(g.aggregates[i]) {
						g.aggregates[i] = *src[f.AttrIndex]
					}
				case Max:
					if src[f.AttrIndex].Greater(g.aggregates[i]) {
						g.aggregates[i] = *src[f.AttrIndex]
					}
				case Sum:
					g.aggregates[i] = register.FromInt(g.aggregates[i].AsInt() + src[f.AttrIndex].AsInt())
				case Count:
					g.aggregates[i] = register.FromInt(g.aggregates[i].AsInt() + 1)
				}
			}
		}
		h.groups = make([]aggrGroup, len(order))
		for i, g := range order {
			h.groups[i] = *g
		}
		h.consumed = true
		h.pos = 0
		h.current = make([]register.Register, len(h.groupByAttrs)+len(h.aggrFuncs))
		h.output = refsOf(h.current)
	}
	if h.pos >= len(h.groups) {
		return false, nil
	}
	g := &h.groups[h.pos]
	copy(h.current, g.groupRegs)
	copy(h.current[len(g.groupRegs):], g.aggregates)
	h.pos++
	return true, nil
}

func (h *HashAggregation) Output() []*register.Register { return h.output }

func (h *HashAggregation) Close() error {
	h.groups = nil
	h.pos = -1
	return h.Input.Close()
}

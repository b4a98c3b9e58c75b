package operators

import "coredb/register"

// HashJoin is an equi-join: on the first Next it builds a hash table
// from the left child keyed on attribute AttrIndexLeft (assumed unique),
// then probes it with each right tuple on AttrIndexRight.
type HashJoin struct {
	BinaryOperator
	attrIndexLeft  int
	attrIndexRight int

	built  bool
	ht     *register.TupleMap[[]register.Register]
	output []*register.Register
	row    []register.Register
}

func NewHashJoin(left, right Operator, attrIndexLeft, attrIndexRight int) *HashJoin {
	return &HashJoin{BinaryOperator: BinaryOperator{Left: left, Right: right}, attrIndexLeft: attrIndexLeft, attrIndexRight: attrIndexRight}
}

func (h *HashJoin) Open() error {
	if err := h.Left.Open(); err != nil {
		return err
	}
	if err := h.Right.Open(); err != nil {
		return err
	}
	h.built = false
	h.ht = nil
	h.row = nil
	h.output = nil
	return nil
}

func (h *HashJoin) Next() (bool, error) {
	if !h.built {
		h.ht = register.NewTupleMap[[]register.Register]()
		for {
			ok, err := h.Left.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
			src := h.Left.Output()
			row := copyTuple(src)
			h.ht.Set([]register.Register{row[h.attrIndexLeft]}, row)
		}
		h.built = true
	}
	for {
		ok, err := h.Right.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		rightTuple := h.Right.Output()
		leftRow, found := h.ht.Get([]register.Register{*rightTuple[h.attrIndexRight]})
		if !found {
			continue
		}
		if h.row == nil {
			h.row = make([]register.Register, len(leftRow)+len(rightTuple))
			h.output = refsOf(h.row)
		}
		copy(h.row, leftRow)
		for i, r := range rightTuple {
			h.row[len(leftRow)+i] = *r
		}
		return true, nil
	}
}

func (h *HashJoin) Output() []*register.Register { return h.output }

func (h *HashJoin) Close() error {
	h.ht = nil
	if err := h.Left.Close(); err != nil {
		return err
	}
	return h.Right.Close()
}

func copyTuple(src []*register.Register) []register.Register {
	row := make([]register.Register, len(src))
	for i, r := range src {
		row[i] = *r
	}
	return row
}

func refsOf(row []register.Register) []*register.Register {
	out := make([]*register.Register, len(row))
	for i := range row {
		out[i] = &row[i]
	}
	return out
}

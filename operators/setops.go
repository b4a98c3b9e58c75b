package operators

import "coredb/register"

// Both inputs of every set operator below are assumed to share a
// schema; output width equals the left input's tuple width.

// Union emits every distinct tuple appearing in either input, once.
type Union struct {
	BinaryOperator
	seen     *register.TupleMap[bool]
	leftDone bool
	row      []register.Register
	output   []*register.Register
}

// ensureRow lazily allocates a persistent output buffer, sized from the
// first tuple seen, so Output() returns stable pointers into it for the
// lifetime of an Open/Close cycle.
func ensureRow(row *[]register.Register, output *[]*register.Register, width int) {
	if *row == nil {
		*row = make([]register.Register, width)
		*output = refsOf(*row)
	}
}

func NewUnion(left, right Operator) *Union {
	return &Union{BinaryOperator: BinaryOperator{Left: left, Right: right}}
}

func (u *Union) Open() error {
	u.seen = register.NewTupleMap[bool]()
	u.leftDone = false
	u.row = nil
	u.output = nil
	if err := u.Left.Open(); err != nil {
		return err
	}
	return u.Right.Open()
}

func (u *Union) Next() (bool, error) {
	if !u.leftDone {
		for {
			ok, err := u.Left.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
			row := copyTuple(u.Left.Output())
			if _, seen := u.seen.Get(row); !seen {
				u.seen.Set(row, true)
				ensureRow(&u.row, &u.output, len(row))
				copy(u.row, row)
				return true, nil
			}
		}
		u.leftDone = true
	}
	for {
		ok, err := u.Right.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		row := copyTuple(u.Right.Output())
		if _, seen := u.seen.Get(row); !seen {
			u.seen.Set(row, true)
			ensureRow(&u.row, &u.output, len(row))
			copy(u.row, row)
			return true, nil
		}
	}
}

func (u *Union) Output() []*register.Register { return u.output }

func (u *Union) Close() error {
	u.seen = nil
	if err := u.Left.Close(); err != nil {
		return err
	}
	return u.Right.Close()
}

// UnionAll emits every tuple from the left input, then every tuple from
// the right, preserving multiplicity.
type UnionAll struct {
	BinaryOperator
	leftDone bool
	row      []register.Register
	output   []*register.Register
}

func NewUnionAll(left, right Operator) *UnionAll {
	return &UnionAll{BinaryOperator: BinaryOperator{Left: left, Right: right}}
}

func (u *UnionAll) Open() error {
	u.leftDone = false
	u.row = nil
	u.output = nil
	if err := u.Left.Open(); err != nil {
		return err
	}
	return u.Right.Open()
}

func (u *UnionAll) Next() (bool, error) {
	if !u.leftDone {
		ok, err := u.Left.Next()
		if err != nil {
			return false, err
		}
		if ok {
			src := u.Left.Output()
			ensureRow(&u.row, &u.output, len(src))
			for i, r := range src {
				u.row[i] = *r
			}
			return true, nil
		}
		u.leftDone = true
	}
	ok, err := u.Right.Next()
	if err != nil || !ok {
		return false, err
	}
	src := u.Right.Output()
	ensureRow(&u.row, &u.output, len(src))
	for i, r := range src {
		u.row[i] = *r
	}
	return true, nil
}

func (u *UnionAll) Output() []*register.Register { return u.output }

func (u *UnionAll) Close() error {
	if err := u.Left.Close(); err != nil {
		return err
	}
	return u.Right.Close()
}

// multisetEntry is one distinct tuple's running multiplicity, looked up
// by content through a TupleMap and mutated in place so every reference
// to a given tuple (e.g. from order) sees the same count.
type multisetEntry struct {
	count int
	row   []register.Register
}

// multisetOp shares the two-phase "consume both sides into a multiset,
// then replay" shape used by Intersect, IntersectAll, Except, ExceptAll.
type multisetOp struct {
	BinaryOperator
	entries *register.TupleMap[*multisetEntry]
	order   []*multisetEntry
	pos     int
	row     []register.Register
	output  []*register.Register
}

func (m *multisetOp) openCommon() error {
	m.entries = register.NewTupleMap[*multisetEntry]()
	m.order = nil
	m.pos = -1
	m.row = nil
	m.output = nil
	if err := m.Left.Open(); err != nil {
		return err
	}
	return m.Right.Open()
}

func (m *multisetOp) closeCommon() error {
	m.entries = nil
	m.order = nil
	if err := m.Left.Close(); err != nil {
		return err
	}
	return m.Right.Close()
}

func (m *multisetOp) Output() []*register.Register { return m.output }

// Intersect emits each tuple present on both sides once.
type Intersect struct{ multisetOp }

func NewIntersect(left, right Operator) *Intersect {
	i := &Intersect{}
	i.Left, i.Right = left, right
	return i
}

func (i *Intersect) Open() error { return i.openCommon() }

func (i *Intersect) Next() (bool, error) {
	if i.pos < 0 {
		for {
			ok, err := i.Left.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
			row := copyTuple(i.Left.Output())
			i.entries.Set(row, &multisetEntry{count: 1, row: row})
		}
		i.pos = 0
	}
	for {
		ok, err := i.Right.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		row := copyTuple(i.Right.Output())
		ent, found := i.entries.Get(row)
		if found && ent.count > 0 {
			ent.count--
			ensureRow(&i.row, &i.output, len(row))
			copy(i.row, ent.row)
			return true, nil
		}
	}
}

func (i *Intersect) Close() error { return i.closeCommon() }

// IntersectAll emits each tuple min(left_mult, right_mult) times.
type IntersectAll struct{ multisetOp }

func NewIntersectAll(left, right Operator) *IntersectAll {
	i := &IntersectAll{}
	i.Left, i.Right = left, right
	return i
}

func (i *IntersectAll) Open() error { return i.openCommon() }

func (i *IntersectAll) Next() (bool, error) {
	if i.pos < 0 {
		for {
			ok, err := i.Left.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
			row := copyTuple(i.Left.Output())
			ent, found := i.entries.Get(row)
			if !found {
				ent = &multisetEntry{row: row}
				i.entries.Set(row, ent)
			}
			ent.count++
		}
		i.pos = 0
	}
	for {
		ok, err := i.Right.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		row := copyTuple(i.Right.Output())
		ent, found := i.entries.Get(row)
		if found && ent.count > 0 {
			ent.count--
			ensureRow(&i.row, &i.output, len(row))
			copy(i.row, ent.row)
			return true, nil
		}
	}
}

func (i *IntersectAll) Close() error { return i.closeCommon() }

// Except emits each distinct tuple present on left and absent (or
// exhausted) on right, once.
type Except struct{ multisetOp }

func NewExcept(left, right Operator) *Except {
	e := &Except{}
	e.Left, e.Right = left, right
	return e
}

func (e *Except) Open() error { return e.openCommon() }

func (e *Except) Next() (bool, error) {
	if e.pos < 0 {
		if err := e.buildAndSubtract(1); err != nil {
			return false, err
		}
	}
	return e.walk()
}

func (e *Except) buildAndSubtract(initial int) error {
	for {
		ok, err := e.Left.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row := copyTuple(e.Left.Output())
		if _, found := e.entries.Get(row); !found {
			ent := &multisetEntry{count: initial, row: row}
			e.entries.Set(row, ent)
			e.order = append(e.order, ent)
		}
	}
	for {
		ok, err := e.Right.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row := copyTuple(e.Right.Output())
		if ent, found := e.entries.Get(row); found && ent.count > 0 {
			ent.count--
		}
	}
	e.pos = 0
	return nil
}

func (e *Except) walk() (bool, error) {
	for e.pos < len(e.order) {
		ent := e.order[e.pos]
		e.pos++
		if ent.count > 0 {
			ent.count--
			ensureRow(&e.row, &e.output, len(ent.row))
			copy(e.row, ent.row)
			return true, nil
		}
	}
	return false, nil
}

func (e *Except) Close() error { return e.closeCommon() }

// ExceptAll emits each tuple max(0, left_mult - right_mult) times.
type ExceptAll struct{ multisetOp }

func NewExceptAll(left, right Operator) *ExceptAll {
	e := &ExceptAll{}
	e.Left, e.Right = left, right
	return e
}

func (e *ExceptAll) Open() error { return e.openCommon() }

func (e *ExceptAll) Next() (bool, error) {
	if e.pos < 0 {
		if err := e.buildAndSubtractAll(); err != nil {
			return false, err
		}
	}
	for e.pos < len(e.order) {
		ent := e.order[e.pos]
		if ent.count > 0 {
			ent.count--
			ensureRow(&e.row, &e.output, len(ent.row))
			copy(e.row, ent.row)
			return true, nil
		}
		e.pos++
	}
	return false, nil
}

func (e *ExceptAll) buildAndSubtractAll() error {
	for {
		ok, err := e.Left.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row := copyTuple(e.Left.Output())
		ent, found := e.entries.Get(row)
		if !found {
			ent = &multisetEntry{row: row}
			e.entries.Set(row, ent)
			e.order = append(e.order, ent)
		}
		ent.count++
	}
	for {
		ok, err := e.Right.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row := copyTuple(e.Right.Output())
		if ent, found := e.entries.Get(row); found && ent.count > 0 {
			ent.count--
		}
	}
	e.pos = 0
	return nil
}

func (e *ExceptAll) Close() error { return e.closeCommon() }

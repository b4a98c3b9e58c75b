package operators

import "coredb/register"

// PredicateType is the comparator a Select applies.
type PredicateType int

const (
	EQ PredicateType = iota
	NE
	LT
	LE
	GT
	GE
)

// Predicate compares the attribute at AttrIndex against either a
// constant register (RightConst, when RightAttrIndex < 0) or another
// attribute of the same tuple (RightAttrIndex, when >= 0).
type Predicate struct {
	AttrIndex      int
	RightConst     register.Register
	RightAttrIndex int // -1 means RightConst is used instead
	Type           PredicateType
}

// Select advances its child until Predicate holds, then forwards the
// child's registers unchanged.
type Select struct {
	UnaryOperator
	pred Predicate
}

func NewSelect(input Operator, pred Predicate) *Select {
	return &Select{UnaryOperator{Input: input}, pred}
}

func (s *Select) Open() error { return s.Input.Open() }

func (s *Select) Next() (bool, error) {
	for {
		ok, err := s.Input.Next()
		if err != nil || !ok {
			return false, err
		}
		tuple := s.Input.Output()
		left := tuple[s.pred.AttrIndex]
		var right *register.Register
		if s.pred.RightAttrIndex >= 0 {
			right = tuple[s.pred.RightAttrIndex]
		} else {
			right = &s.pred.RightConst
		}
		if evalPredicate(s.pred.Type, left, right) {
			return true, nil
		}
	}
}

func evalPredicate(t PredicateType, left, right *register.Register) bool {
	switch t {
	case EQ:
		return left.Equal(*right)
	case NE:
		return !left.Equal(*right)
	case LT:
		return left.Less(*right)
	case LE:
		return left.LessEqual(*right)
	case GT:
		return left.Greater(*right)
	case GE:
		return left.GreaterEqual(*right)
	default:
		panic("select: unknown predicate type")
	}
}

func (s *Select) Output() []*register.Register { return s.Input.Output() }

func (s *Select) Close() error { return s.Input.Close() }

package operators

import (
	"sort"

	"coredb/register"
)

// Criterion is one ORDER BY key: the attribute to sort by, and whether
// to sort it descending.
type Criterion struct {
	AttrIndex int
	Desc      bool
}

// Sort materializes its child's entire output on the first Next call,
// stably sorts it by applying criteria in reverse (least-significant
// first), and replays the materialized rows on subsequent calls.
type Sort struct {
	UnaryOperator
	criteria []Criterion

	rowWidth int
	sorted   [][]register.Register
	pos      int
	current  []register.Register
	output   []*register.Register
}

func NewSort(input Operator, criteria []Criterion) *Sort {
	return &Sort{UnaryOperator: UnaryOperator{Input: input}, criteria: criteria, pos: -1}
}

func (s *Sort) Open() error {
	s.sorted = nil
	s.pos = -1
	return s.Input.Open()
}

func (s *Sort) Next() (bool, error) {
	if s.pos < 0 {
		for {
			ok, err := s.Input.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
			src := s.Input.Output()
			if s.rowWidth == 0 {
				s.rowWidth = len(src)
			}
			row := make([]register.Register, len(src))
			for i, r := range src {
				row[i] = *r
			}
			s.sorted = append(s.sorted, row)
		}
		for i := len(s.criteria) - 1; i >= 0; i-- {
			c := s.criteria[i]
			sort.SliceStable(s.sorted, func(a, b int) bool {
				if c.Desc {
					return s.sorted[a][c.AttrIndex].Greater(s.sorted[b][c.AttrIndex])
				}
				return s.sorted[a][c.AttrIndex].Less(s.sorted[b][c.AttrIndex])
			})
		}
		s.pos = 0
		s.current = make([]register.Register, s.rowWidth)
		s.output = refsOf(s.current)
	}
	if s.pos >= len(s.sorted) {
		return false, nil
	}
	copy(s.current, s.sorted[s.pos])
	s.pos++
	return true, nil
}

func (s *Sort) Output() []*register.Register { return s.output }

func (s *Sort) Close() error {
	s.sorted = nil
	s.pos = -1
	return s.Input.Close()
}

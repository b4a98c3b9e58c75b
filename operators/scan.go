package operators

import "coredb/register"

// VectorScan is a source operator reading tuples out of an in-memory
// slice. Production pipelines would source from the buffer manager or
// external sort output; tests and this package's own fixtures build
// pipelines directly on top of VectorScan.
type VectorScan struct {
	rows []register.Register // flattened, rowWidth registers per row
	rowWidth int

	pos    int
	output []*register.Register
	scratch []register.Register
}

// NewVectorScan builds a scan over rows, each of which must have
// exactly rowWidth registers.
func NewVectorScan(rows [][]register.Register, rowWidth int) *VectorScan {
	return &VectorScan{rowsFromSlices(rows, rowWidth), rowWidth, -1, nil, make([]register.Register, rowWidth)}
}

func rowsFromSlices(rows [][]register.Register, rowWidth int) []register.Register {
	flat := make([]register.Register, 0, len(rows)*rowWidth)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return flat
}

func (s *VectorScan) Open() error {
	s.pos = -1
	s.output = make([]*register.Register, s.rowWidth)
	for i := range s.scratch {
		s.output[i] = &s.scratch[i]
	}
	return nil
}

func (s *VectorScan) Next() (bool, error) {
	s.pos++
	if s.pos >= len(s.rows)/s.rowWidth {
		return false, nil
	}
	copy(s.scratch, s.rows[s.pos*s.rowWidth:(s.pos+1)*s.rowWidth])
	return true, nil
}

func (s *VectorScan) Output() []*register.Register { return s.output }

func (s *VectorScan) Close() error {
	s.pos = -1
	return nil
}

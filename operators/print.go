package operators

import (
	"fmt"
	"io"

	"coredb/register"
)

// Print emits each child tuple as comma-separated fields followed by a
// newline. It has no output of its own.
type Print struct {
	UnaryOperator
	w io.Writer
}

func NewPrint(input Operator, w io.Writer) *Print {
	return &Print{UnaryOperator{Input: input}, w}
}

func (p *Print) Open() error { return p.Input.Open() }

func (p *Print) Next() (bool, error) {
	ok, err := p.Input.Next()
	if err != nil || !ok {
		return false, err
	}
	tuple := p.Input.Output()
	for i, reg := range tuple {
		if i > 0 {
			if _, werr := fmt.Fprint(p.w, ","); werr != nil {
				return false, werr
			}
		}
		var werr error
		if reg.Kind() == register.Int64 {
			_, werr = fmt.Fprintf(p.w, "%d", reg.AsInt())
		} else {
			_, werr = fmt.Fprint(p.w, reg.AsString())
		}
		if werr != nil {
			return false, werr
		}
	}
	_, err = fmt.Fprint(p.w, "\n")
	return true, err
}

func (p *Print) Output() []*register.Register { return nil }

func (p *Print) Close() error { return p.Input.Close() }

package operators

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/register"
)

func row(vals ...interface{}) []register.Register {
	out := make([]register.Register, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case int:
			out[i] = register.FromInt(int64(x))
		case string:
			out[i] = register.FromString(x)
		default:
			panic("row: unsupported value type")
		}
	}
	return out
}

func drain(t *testing.T, op Operator) [][]register.Register {
	t.Helper()
	require.NoError(t, op.Open())
	var rows [][]register.Register
	for {
		ok, err := op.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out := op.Output()
		r := make([]register.Register, len(out))
		for i, reg := range out {
			r[i] = *reg
		}
		rows = append(rows, r)
	}
	require.NoError(t, op.Close())
	return rows
}

func TestPrintFormatsCommaSeparatedRows(t *testing.T) {
	scan := NewVectorScan([][]register.Register{row(1, "a"), row(2, "b")}, 2)
	var buf bytes.Buffer
	p := NewPrint(scan, &buf)
	require.NoError(t, p.Open())
	for {
		ok, err := p.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.NoError(t, p.Close())
	require.Equal(t, "1,a\n2,b\n", buf.String())
}

func TestProjectionReordersAttributes(t *testing.T) {
	scan := NewVectorScan([][]register.Register{row(1, "a", 9)}, 3)
	proj := NewProjection(scan, []int{2, 0})
	rows := drain(t, proj)
	require.Len(t, rows, 1)
	require.EqualValues(t, 9, rows[0][0].AsInt())
	require.EqualValues(t, 1, rows[0][1].AsInt())
}

func TestSelectFiltersByConstant(t *testing.T) {
	scan := NewVectorScan([][]register.Register{row(1), row(2), row(3)}, 1)
	sel := NewSelect(scan, Predicate{AttrIndex: 0, RightConst: register.FromInt(2), RightAttrIndex: -1, Type: GE})
	rows := drain(t, sel)
	require.Len(t, rows, 2)
	require.EqualValues(t, 2, rows[0][0].AsInt())
	require.EqualValues(t, 3, rows[1][0].AsInt())
}

func TestSortOrdersBySingleAscendingCriterion(t *testing.T) {
	scan := NewVectorScan([][]register.Register{row(5), row(2), row(9), row(1), row(7), row(3)}, 1)
	s := NewSort(scan, []Criterion{{AttrIndex: 0}})
	rows := drain(t, s)
	want := []int64{1, 2, 3, 5, 7, 9}
	require.Len(t, rows, len(want))
	for i, w := range want {
		require.EqualValues(t, w, rows[i][0].AsInt())
	}
}

func TestHashJoinBasic(t *testing.T) {
	left := NewVectorScan([][]register.Register{row(1, "a"), row(2, "b")}, 2)
	right := NewVectorScan([][]register.Register{row(2, "x"), row(3, "y")}, 2)
	join := NewHashJoin(left, right, 0, 0)
	rows := drain(t, join)
	require.Len(t, rows, 1)
	require.EqualValues(t, 2, rows[0][0].AsInt())
	require.Equal(t, "b", rows[0][1].AsString())
	require.EqualValues(t, 2, rows[0][2].AsInt())
	require.Equal(t, "x", rows[0][3].AsString())
}

func TestHashAggregationGroupsAndAggregates(t *testing.T) {
	scan := NewVectorScan([][]register.Register{row(1, 10), row(1, 20), row(2, 5)}, 2)
	agg := NewHashAggregation(scan, []int{0}, []AggrFunc{{Func: Sum, AttrIndex: 1}, {Func: Count, AttrIndex: 1}})
	rows := drain(t, agg)
	require.Len(t, rows, 2)

	byGroup := map[int64][2]int64{}
	for _, r := range rows {
		byGroup[r[0].AsInt()] = [2]int64{r[1].AsInt(), r[2].AsInt()}
	}
	require.Equal(t, [2]int64{30, 2}, byGroup[1])
	require.Equal(t, [2]int64{5, 1}, byGroup[2])
}

func TestUnionDeduplicatesAcrossBothInputs(t *testing.T) {
	left := NewVectorScan([][]register.Register{row(1), row(2), row(1)}, 1)
	right := NewVectorScan([][]register.Register{row(2), row(3)}, 1)
	u := NewUnion(left, right)
	rows := drain(t, u)
	require.Len(t, rows, 3)
}

func TestUnionAllKeepsMultiplicities(t *testing.T) {
	left := NewVectorScan([][]register.Register{row(1), row(1)}, 1)
	right := NewVectorScan([][]register.Register{row(1)}, 1)
	u := NewUnionAll(left, right)
	rows := drain(t, u)
	require.Len(t, rows, 3)
}

func TestIntersectAllTakesMinMultiplicity(t *testing.T) {
	left := NewVectorScan([][]register.Register{row(1), row(1), row(1), row(2)}, 1)
	right := NewVectorScan([][]register.Register{row(1), row(1), row(3)}, 1)
	i := NewIntersectAll(left, right)
	rows := drain(t, i)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.EqualValues(t, 1, r[0].AsInt())
	}
}

func TestExceptAllTakesPositiveDifference(t *testing.T) {
	left := NewVectorScan([][]register.Register{row(1), row(1), row(1), row(2)}, 1)
	right := NewVectorScan([][]register.Register{row(1)}, 1)
	e := NewExceptAll(left, right)
	rows := drain(t, e)
	require.Len(t, rows, 3)
}

func TestExceptEmitsDistinctTuplesOnlyOnLeft(t *testing.T) {
	left := NewVectorScan([][]register.Register{row(1), row(1), row(2)}, 1)
	right := NewVectorScan([][]register.Register{row(1)}, 1)
	e := NewExcept(left, right)
	rows := drain(t, e)
	require.Len(t, rows, 1)
	require.EqualValues(t, 2, rows[0][0].AsInt())
}

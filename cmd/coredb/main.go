// Command coredb wires the storage, buffer, and index packages together
// for a smoke-test run: insert a handful of keys into a disk-backed
// B+-tree and print them back out through the operator pipeline.
package main

import (
	"fmt"
	"os"

	"coredb/btree"
	"coredb/buffer"
	"coredb/operators"
	"coredb/register"
	"coredb/segment"
)

func main() {
	dir, err := os.MkdirTemp("", "coredb-smoke")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	bm := buffer.NewManager(buffer.Options{PageSize: 4096, PageCount: 64, Dir: dir})
	defer bm.Close()

	seg := segment.New(0, bm)
	tree := btree.New[int64, int64](seg, btree.Int64Codec{}, btree.Int64Codec{}, btree.CompareInt64, bm.PageSize())

	entries := map[int64]int64{3: 30, 1: 10, 2: 20}
	for k, v := range entries {
		if err := tree.Insert(k, v); err != nil {
			panic(err)
		}
	}

	rows := make([][]register.Register, 0, len(entries))
	for k, v := range entries {
		got, found, err := tree.Lookup(k)
		if err != nil {
			panic(err)
		}
		if !found || got != v {
			panic(fmt.Sprintf("lookup(%d) = %d, %v; want %d, true", k, got, found, v))
		}
		rows = append(rows, []register.Register{register.FromInt(k), register.FromInt(got)})
	}

	scan := operators.NewVectorScan(rows, 2)
	sorted := operators.NewSort(scan, []operators.Criterion{{AttrIndex: 0}})
	print := operators.NewPrint(sorted, os.Stdout)

	if err := print.Open(); err != nil {
		panic(err)
	}
	for {
		ok, err := print.Next()
		if err != nil {
			panic(err)
		}
		if !ok {
			break
		}
	}
	if err := print.Close(); err != nil {
		panic(err)
	}
}

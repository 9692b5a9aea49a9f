package cubestore

import (
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/cube"
)

var alloc = memory.NewGoAllocator()

var (
	positiveInf = math.Inf(1)
	negativeInf = math.Inf(-1)
)

// encodeCube writes c as a single Arrow IPC stream record to w.
func encodeCube(w io.Writer, c *cube.Cube) error {
	schema := buildSchema(c.Dims)
	rb := array.NewRecordBuilder(alloc, schema)
	defer rb.Release()

	nDims := len(c.Dims)
	dimBuilders := make([]*array.StringBuilder, nDims)
	for i := 0; i < nDims; i++ {
		dimBuilders[i] = rb.Field(i).(*array.StringBuilder)
	}
	bidSum := rb.Field(nDims + 0).(*array.Float64Builder)
	bidCnt := rb.Field(nDims + 1).(*array.Int64Builder)
	bidMin := rb.Field(nDims + 2).(*array.Float64Builder)
	bidMax := rb.Field(nDims + 3).(*array.Float64Builder)
	totSum := rb.Field(nDims + 4).(*array.Float64Builder)
	totCnt := rb.Field(nDims + 5).(*array.Int64Builder)
	totMin := rb.Field(nDims + 6).(*array.Float64Builder)
	totMax := rb.Field(nDims + 7).(*array.Float64Builder)
	rowCnt := rb.Field(nDims + 8).(*array.Int64Builder)

	for _, row := range c.Rows {
		for i, v := range row.Key {
			dimBuilders[i].Append(v)
		}
		p := row.P
		bidSum.Append(p.BidSum)
		bidCnt.Append(p.BidCnt)
		if mn, ok := p.BidMinValue(); ok {
			bidMin.Append(mn)
		} else {
			bidMin.AppendNull()
		}
		if mx, ok := p.BidMaxValue(); ok {
			bidMax.Append(mx)
		} else {
			bidMax.AppendNull()
		}
		totSum.Append(p.TotSum)
		totCnt.Append(p.TotCnt)
		if mn, ok := p.TotMinValue(); ok {
			totMin.Append(mn)
		} else {
			totMin.AppendNull()
		}
		if mx, ok := p.TotMaxValue(); ok {
			totMax.Append(mx)
		} else {
			totMax.AppendNull()
		}
		rowCnt.Append(p.RowCnt)
	}

	rec := rb.NewRecord()
	defer rec.Release()

	iw, err := ipc.NewWriter(w, ipc.WithSchema(schema))
	if err != nil {
		return apperr.Wrap(apperr.Store, "open ipc writer for "+c.Name, err)
	}
	defer iw.Close()

	if err := iw.Write(rec); err != nil {
		return apperr.Wrap(apperr.Store, "write ipc record for "+c.Name, err)
	}
	return iw.Close()
}

// decodeCube reads a cube named name, with the given dimension list,
// back from the Arrow IPC stream in r.
func decodeCube(r io.Reader, name string, dims []string) (*cube.Cube, error) {
	ir, err := ipc.NewReader(r, ipc.WithAllocator(alloc))
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "open ipc reader for "+name, err)
	}
	defer ir.Release()

	c := &cube.Cube{Name: name, Dims: dims, Rows: make(map[string]*cube.Row)}
	nDims := len(dims)

	for ir.Next() {
		rec := ir.Record()
		nRows := int(rec.NumRows())

		dimCols := make([]*array.String, nDims)
		for i := 0; i < nDims; i++ {
			dimCols[i] = rec.Column(i).(*array.String)
		}
		bidSum := rec.Column(nDims + 0).(*array.Float64)
		bidCnt := rec.Column(nDims + 1).(*array.Int64)
		bidMin := rec.Column(nDims + 2).(*array.Float64)
		bidMax := rec.Column(nDims + 3).(*array.Float64)
		totSum := rec.Column(nDims + 4).(*array.Float64)
		totCnt := rec.Column(nDims + 5).(*array.Int64)
		totMin := rec.Column(nDims + 6).(*array.Float64)
		totMax := rec.Column(nDims + 7).(*array.Float64)
		rowCnt := rec.Column(nDims + 8).(*array.Int64)

		for j := 0; j < nRows; j++ {
			key := make([]string, nDims)
			for i := 0; i < nDims; i++ {
				key[i] = dimCols[i].Value(j)
			}

			p := decodePartial(bidSum, bidCnt, bidMin, bidMax, totSum, totCnt, totMin, totMax, rowCnt, j)
			c.Rows[cube.JoinKey(key)] = &cube.Row{Key: key, P: p}
		}
	}
	if err := ir.Err(); err != nil && err != io.EOF {
		return nil, apperr.Wrap(apperr.Store, "decode ipc stream for "+name, err)
	}
	return c, nil
}

func decodePartial(bidSum *array.Float64, bidCnt *array.Int64, bidMin, bidMax *array.Float64,
	totSum *array.Float64, totCnt *array.Int64, totMin, totMax *array.Float64, rowCnt *array.Int64, j int) cube.Partial {

	p := cube.Partial{
		BidSum: bidSum.Value(j),
		BidCnt: bidCnt.Value(j),
		TotSum: totSum.Value(j),
		TotCnt: totCnt.Value(j),
		RowCnt: rowCnt.Value(j),
	}
	if bidMin.IsValid(j) {
		p.BidMin = bidMin.Value(j)
	} else {
		p.BidMin = positiveInf
	}
	if bidMax.IsValid(j) {
		p.BidMax = bidMax.Value(j)
	} else {
		p.BidMax = negativeInf
	}
	if totMin.IsValid(j) {
		p.TotMin = totMin.Value(j)
	} else {
		p.TotMin = positiveInf
	}
	if totMax.IsValid(j) {
		p.TotMax = totMax.Value(j)
	} else {
		p.TotMax = negativeInf
	}
	return p
}

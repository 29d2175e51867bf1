package cqt

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

type projectionKind int

const (
	noProjection projectionKind = iota
	denseProjection
	sparseProjection
)

// projector multiplies the filter bank against STFT columns. Exactly one of
// dense/sparse is set, matching kind.
type projector struct {
	kind   projectionKind
	dense  *denseBank
	sparse *csrMatrix
}

// denseBank is a row-major rows x cols complex matrix
type denseBank struct {
	rows, cols int
	data       []complex128
}

// csrMatrix is a compressed sparse row matrix. It is never mutated once built.
type csrMatrix struct {
	rows, cols int
	values     []complex128
	colIndex   []int
	rowOffset  []int // len rows+1
}

func newDenseProjector(d *denseBank) projector {
	return projector{kind: denseProjection, dense: d}
}

func newSparseProjector(m *csrMatrix) projector {
	return projector{kind: sparseProjection, sparse: m}
}

// newCSR compresses a row-major dense matrix, skipping exact zeros
func newCSR(flat []complex128, rows, cols int) *csrMatrix {
	nnz := 0
	for _, v := range flat {
		if v != 0 {
			nnz++
		}
	}

	m := &csrMatrix{
		rows:      rows,
		cols:      cols,
		values:    make([]complex128, 0, nnz),
		colIndex:  make([]int, 0, nnz),
		rowOffset: make([]int, rows+1),
	}
	for r := range rows {
		for c, v := range flat[r*cols : (r+1)*cols] {
			if v != 0 {
				m.values = append(m.values, v)
				m.colIndex = append(m.colIndex, c)
			}
		}
		m.rowOffset[r+1] = len(m.values)
	}
	return m
}

// NonZeros returns the number of stored coefficients
func (m *csrMatrix) NonZeros() int {
	return len(m.values)
}

// scaled returns a new CSR handle over values multiplied by k
func (m *csrMatrix) scaled(k float64) *csrMatrix {
	values := make([]complex128, len(m.values))
	for i, v := range m.values {
		values[i] = v * complex(k, 0)
	}
	return &csrMatrix{
		rows:      m.rows,
		cols:      m.cols,
		values:    values,
		colIndex:  m.colIndex,
		rowOffset: m.rowOffset,
	}
}

func (p projector) scaled(k float64) projector {
	switch p.kind {
	case sparseProjection:
		return newSparseProjector(p.sparse.scaled(k))
	case denseProjection:
		for i := range p.dense.data {
			p.dense.data[i] *= complex(k, 0)
		}
	}
	return p
}

func (p projector) rows() int {
	switch p.kind {
	case sparseProjection:
		return p.sparse.rows
	case denseProjection:
		return p.dense.rows
	default:
		return 0
	}
}

// project computes filters (rows x nFreqs) times the STFT transposed
// (nFreqs x nFrames). frames is nFrames x nFreqs.
func (p projector) project(frames [][]complex128, nFreqs int) [][]complex128 {
	nRows := p.rows()
	nFrames := len(frames)

	out := make([][]complex128, nRows)
	if nFrames == 0 {
		for r := range out {
			out[r] = []complex128{}
		}
		return out
	}

	// column-major view of the STFT: row k holds bin k of every frame
	cols := make([]complex128, nFreqs*nFrames)
	for t, frame := range frames {
		for k, v := range frame {
			cols[k*nFrames+t] = v
		}
	}

	result := make([]complex128, nRows*nFrames)

	switch p.kind {
	case denseProjection:
		a := cblas128.General{Rows: nRows, Cols: nFreqs, Stride: nFreqs, Data: p.dense.data}
		b := cblas128.General{Rows: nFreqs, Cols: nFrames, Stride: nFrames, Data: cols}
		c := cblas128.General{Rows: nRows, Cols: nFrames, Stride: nFrames, Data: result}
		cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, a, b, 0, c)

	case sparseProjection:
		m := p.sparse
		for r := range nRows {
			dst := result[r*nFrames : (r+1)*nFrames]
			for idx := m.rowOffset[r]; idx < m.rowOffset[r+1]; idx++ {
				v := m.values[idx]
				src := cols[m.colIndex[idx]*nFrames : (m.colIndex[idx]+1)*nFrames]
				for t, s := range src {
					dst[t] += v * s
				}
			}
		}
	}

	for r := range out {
		out[r] = result[r*nFrames : (r+1)*nFrames]
	}
	return out
}

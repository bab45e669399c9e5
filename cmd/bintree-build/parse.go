package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// parsedInput holds one weighted point cloud read from CSV: the last
// column is treated as the weight unless hasWeight is false, in which
// case every point gets weight 1.
type parsedInput struct {
	X        [][]float64
	W        []float64
	VarNames []string
}

// parseCSV reads a point cloud from r. The first row is treated as a
// header (variable names) unless it fails to parse as a header, in which
// case X1..Xn placeholders are used and the first row is parsed as data.
// When hasWeight is true the last column is the per-point weight;
// otherwise every point gets weight 1.
func parseCSV(r io.Reader, hasWeight bool) (*parsedInput, error) {
	reader := csv.NewReader(r)
	p := &parsedInput{}

	row, err := reader.Read()
	if err != nil {
		return p, err
	}

	if names, err := parseHeader(row); err == nil {
		p.VarNames = names
	} else {
		for i := range headerCols(row, hasWeight) {
			p.VarNames = append(p.VarNames, fmt.Sprintf("X%d", i+1))
		}
		if err := p.parseRow(row, hasWeight); err != nil {
			return p, err
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p, err
		}
		if err := p.parseRow(row, hasWeight); err != nil {
			return p, err
		}
	}

	return p, nil
}

func headerCols(row []string, hasWeight bool) []string {
	if hasWeight && len(row) > 0 {
		return row[:len(row)-1]
	}
	return row
}

// parseHeader returns row as variable names if every cell fails to parse
// as a float (a purely numeric first row is data, not a header).
func parseHeader(row []string) ([]string, error) {
	for _, cell := range row {
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return nil, fmt.Errorf("row looks numeric, not a header")
		}
	}
	return row, nil
}

func (p *parsedInput) parseRow(row []string, hasWeight bool) error {
	nx := len(row)
	weight := 1.

	if hasWeight {
		if nx < 2 {
			return fmt.Errorf("parse.go: row has %d columns, need at least 1 coordinate plus a weight", nx)
		}
		w, err := strconv.ParseFloat(row[nx-1], 64)
		if err != nil {
			return fmt.Errorf("parse.go: invalid weight %q: %v", row[nx-1], err)
		}
		weight = w
		nx--
	}

	x := make([]float64, nx)
	for i := 0; i < nx; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return fmt.Errorf("parse.go: invalid value %q in column %d: %v", row[i], i, err)
		}
		x[i] = v
	}

	p.X = append(p.X, x)
	p.W = append(p.W, weight)
	return nil
}

// Package mae reads the atom coordinates of a Maestro (.mae) structure
// file. Only the first connection table's m_atom block is consumed; that is
// all the site computation needs.
package mae

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Structure holds the coordinates of one structure as an Nx3 matrix.
type Structure struct {
	coords *mat.Dense
}

// NumAtoms returns the number of atoms read.
func (s *Structure) NumAtoms() int {
	n, _ := s.coords.Dims()
	return n
}

// Coord returns the (x, y, z) coordinates of atom i.
func (s *Structure) Coord(i int) (x, y, z float64) {
	return s.coords.At(i, 0), s.coords.At(i, 1), s.coords.At(i, 2)
}

// Centroid returns the unweighted mean of the atom coordinates.
func (s *Structure) Centroid() (x, y, z float64) {
	n, _ := s.coords.Dims()
	col := make([]float64, n)
	var c [3]float64
	for j := 0; j < 3; j++ {
		mat.Col(col, j, s.coords)
		c[j] = stat.Mean(col, nil)
	}
	return c[0], c[1], c[2]
}

// Site formats a centroid the way the grid and pharmacophore tools expect
// a site center: "x,y,z" with two decimals.
func Site(x, y, z float64) string {
	return fmt.Sprintf("%.2f,%.2f,%.2f", x, y, z)
}

// ReadFile reads the first m_atom block from the named .mae file.
func ReadFile(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Read reads the first m_atom block from r.
//
// The block looks like
//
//	m_atom[N] {
//	  <column names, one per line>
//	  :::
//	  <N data rows>
//	  :::
//	}
//
// where the first, unnamed column is the atom index. Data rows may contain
// double-quoted fields with embedded spaces.
func Read(r io.Reader) (*Structure, error) {
	br := bufio.NewReader(r)

	cols, err := atomColumns(br)
	if err != nil {
		return nil, err
	}
	xi, yi, zi := -1, -1, -1
	for i, name := range cols {
		switch name {
		case "r_m_x_coord":
			xi = i
		case "r_m_y_coord":
			yi = i
		case "r_m_z_coord":
			zi = i
		}
	}
	if xi < 0 || yi < 0 || zi < 0 {
		return nil, fmt.Errorf("m_atom block lacks coordinate columns")
	}

	var data []float64
	for {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("unterminated m_atom data: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == ":::" {
			break
		}
		if line == "" {
			continue
		}
		fields := splitFields(line)
		// Leading field is the atom index, not listed in the header.
		if len(fields) < len(cols)+1 {
			return nil, fmt.Errorf("short atom row: %q", line)
		}
		row := make([]float64, 3)
		for j, ci := range []int{xi, yi, zi} {
			v, err := strconv.ParseFloat(fields[ci+1], 64)
			if err != nil {
				return nil, fmt.Errorf("bad coordinate in row %q: %w", line, err)
			}
			row[j] = v
		}
		data = append(data, row...)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("m_atom block has no atoms")
	}

	return &Structure{coords: mat.NewDense(len(data)/3, 3, data)}, nil
}

// atomColumns scans up to the first m_atom block and returns the declared
// column names, leaving the reader positioned at the first data row.
func atomColumns(br *bufio.Reader) ([]string, error) {
	for {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("no m_atom block found")
		}
		if !strings.HasPrefix(strings.TrimSpace(line), "m_atom[") {
			continue
		}
		var cols []string
		for {
			line, err = br.ReadString('\n')
			if err != nil && line == "" {
				return nil, fmt.Errorf("unterminated m_atom header: %w", err)
			}
			tok := strings.TrimSpace(line)
			if tok == ":::" {
				return cols, nil
			}
			if tok == "" || strings.HasPrefix(tok, "#") || strings.HasSuffix(tok, "{") {
				continue
			}
			cols = append(cols, tok)
		}
	}
}

// splitFields splits a data row on whitespace, honoring double-quoted
// fields (Maestro quotes strings with embedded spaces, e.g. atom names).
func splitFields(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		fields = append(fields, cur.String())
		cur.Reset()
	}
	started := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				flush()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if started {
		flush()
	}
	return fields
}

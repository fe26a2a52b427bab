package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
)

type dataset struct {
	X        *mat.Dense
	y        []float64
	features []string
}

func loadDataset(xPath, yPath string) (*dataset, error) {
	xRows, header, err := readCSV(xPath)
	if err != nil {
		return nil, err
	}
	yRows, _, err := readCSV(yPath)
	if err != nil {
		return nil, err
	}
	if len(xRows) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s", xPath)
	}

	n, p := len(xRows), len(xRows[0])
	X := mat.NewDense(n, p, nil)
	for i, row := range xRows {
		X.SetRow(i, row)
	}

	y := make([]float64, len(yRows))
	for i, row := range yRows {
		if len(row) != 1 {
			return nil, errors.NewValueError("loadDataset", yPath+": response must have exactly one column")
		}
		y[i] = row[0]
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("loadDataset", n, len(y), 0)
	}
	return &dataset{X: X, y: y, features: header}, nil
}

// readCSV parses a numeric CSV file. A first row that does not parse as
// numbers is returned as the header.
func readCSV(filename string) ([][]float64, []string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return parseCSV(file, filename)
}

func parseCSV(r io.Reader, name string) ([][]float64, []string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read %s", name)
	}

	var header []string
	rows := make([][]float64, 0, len(records))
	for i, rec := range records {
		row, err := parseRow(rec)
		if err != nil {
			if i == 0 {
				header = make([]string, len(rec))
				for j, s := range rec {
					header[j] = strings.TrimSpace(s)
				}
				continue
			}
			return nil, nil, errors.Wrapf(err, "%s line %d", name, i+1)
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

func parseRow(rec []string) ([]float64, error) {
	row := make([]float64, len(rec))
	for j, s := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		row[j] = v
	}
	return row, nil
}

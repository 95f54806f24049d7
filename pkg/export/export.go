// Package export renders tabular reports as downloadable files.
package export

import (
	"fmt"
	"strings"
)

// Format is a supported export file format.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts csv or pdf in any case.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// Table is export content; every row has one cell per column.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Exporter renders a Table into a file body.
type Exporter interface {
	Render(Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// For returns the exporter for format.
func For(format Format) (Exporter, error) {
	switch format {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

func validate(t Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("export requires at least one column")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}

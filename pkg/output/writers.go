// Package output renders site-attributed records as a console table, CSV or YAML.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"Get-Meraki-Devices/pkg/records"
)

// Projection is the ordered list of columns shown and exported.
type Projection []string

// DeviceProjection is used for serial lookups and whole-network device dumps.
var DeviceProjection = Projection{"site", "name", "serial", "mac", "lanIp", "model", "firmware", "notes"}

// ClientProjection is used for network client dumps.
var ClientProjection = Projection{"site", "mac", "description", "ip", "recentDeviceName", "switchport", "status", "manufacturer", "id", "notes", "usage"}

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Rows builds one row per record in projection order. Missing fields are
// empty strings. For a record whose site is absent, fallback entries fill
// the empty cells of the same name; present values are never replaced.
func Rows(recs []records.Record, p Projection, fallback map[string]string) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := make([]string, len(p))
		for i, key := range p {
			if v, ok := rec.Value(key); ok {
				row[i] = records.Text(v)
			}
		}
		if !rec.Site.Known() {
			for i, key := range p {
				if fv := fallback[key]; fv != "" && row[i] == "" {
					row[i] = fv
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteTable writes an aligned table of recs.
func WriteTable(w io.Writer, recs []records.Record, p Projection, fallback map[string]string) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers(p...).
		Rows(Rows(recs, p, fallback)...).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	fmt.Fprintln(w, t.String())
}

// WriteCSV writes a header row equal to p followed by one row per record.
func WriteCSV(w io.Writer, recs []records.Record, p Projection, fallback map[string]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(p); err != nil {
		return err
	}
	for _, row := range Rows(recs, p, fallback) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// PersistCSV writes recs to path as CSV. An empty path does nothing.
// A failed write leaves whatever was written in place.
func PersistCSV(path string, recs []records.Record, p Projection, fallback map[string]string) error {
	if path == "" {
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create CSV file: %w", err)
	}
	if err := WriteCSV(file, recs, p, fallback); err != nil {
		_ = file.Close()
		return fmt.Errorf("write CSV file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close CSV file %s: %w", path, err)
	}
	return nil
}

package gather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tidder/internal/domain"
)

// LoadCompanies reads the companies CSV at path. The header row names the
// columns (case-insensitive, trimmed); symbol and name are required, sector
// and industry optional. Rows with a blank symbol are skipped and the first
// row wins for duplicate symbols.
func LoadCompanies(path string) ([]domain.Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening companies csv: %w", err)
	}
	defer f.Close()
	return ParseCompanies(f)
}

// ParseCompanies is LoadCompanies over an already opened reader.
func ParseCompanies(r io.Reader) ([]domain.Company, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("companies csv: missing header row")
		}
		return nil, fmt.Errorf("reading companies header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, req := range []string{"symbol", "name"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("companies csv: missing %q column", req)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []domain.Company
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("companies csv line %d: %w", line, err)
		}
		sym := strings.ToUpper(field(rec, "symbol"))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, domain.Company{
			Symbol:   sym,
			Name:     field(rec, "name"),
			Sector:   field(rec, "sector"),
			Industry: field(rec, "industry"),
		})
	}
	return out, nil
}

// Package statement parses brokerage activity-statement exports: a flat,
// multi-section CSV where every row carries its section name in the first
// column and a row type (Header, Data, SubTotal, Total) in the second.
package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/bobmcallan/folio/internal/models"
)

// Extract scans the raw decoded text of one statement file and groups rows
// into homogeneous sections. Each section's Header row is captured as its
// column schema and excluded from the data rows. Unrecognized sections are
// kept as-is; the normalizer decides which ones it understands.
//
// Row-level problems never abort the scan: malformed rows are skipped and
// recorded as warnings on the returned Statement.
func Extract(raw []byte) (*models.Statement, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	// Sections have different column counts.
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	st := &models.Statement{Sections: make(map[string]*models.Section)}

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			// A row the CSV reader cannot recover from; note it and keep going.
			st.Warnings = append(st.Warnings, fmt.Sprintf("line %d: unreadable row: %v", line, err))
			continue
		}
		if len(record) < 2 {
			continue
		}

		sectionName := record[0]
		rowType := record[1]
		if sectionName == "" {
			continue
		}

		switch rowType {
		case "Header":
			// A repeated header re-opens the same section (statements split
			// long sections into sub-blocks with their own header rows).
			sec := st.Sections[sectionName]
			if sec == nil {
				sec = &models.Section{Name: sectionName}
				st.Sections[sectionName] = sec
			}
			sec.Header = record
		case "Data":
			sec := st.Sections[sectionName]
			if sec == nil {
				// Data row before any header: keep the rows, schema unknown.
				sec = &models.Section{Name: sectionName}
				st.Sections[sectionName] = sec
			}
			if len(sec.Header) > 0 && len(record) < len(sec.Header) {
				st.Warnings = append(st.Warnings, fmt.Sprintf(
					"line %d: %s row has %d columns, header has %d, skipped",
					line, sectionName, len(record), len(sec.Header)))
				continue
			}
			sec.Rows = append(sec.Rows, record)
		default:
			// SubTotal, Total, Notes and friends carry no fills.
		}
	}

	return st, nil
}

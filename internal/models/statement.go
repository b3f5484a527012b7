package models

// Section holds one homogeneous row group extracted from an activity
// statement, keyed by the statement's own leading section name.
type Section struct {
	Name   string     `json:"name"`
	Header []string   `json:"header,omitempty"` // column schema from the section's Header row
	Rows   [][]string `json:"rows"`             // Data rows only, in statement order
}

// Statement is the section-extracted form of one raw export, before
// normalization into typed records.
type Statement struct {
	Sections map[string]*Section `json:"sections"`
	Warnings []string            `json:"warnings,omitempty"` // non-fatal row-level parse issues
}

// Section returns the named section, or nil when the statement does not
// contain it (a statement with zero trade rows is not an error).
func (s *Statement) Section(name string) *Section {
	if s == nil || s.Sections == nil {
		return nil
	}
	return s.Sections[name]
}

// Statement section names in the known export layout.
const (
	SectionTrades             = "Trades"
	SectionDividends          = "Dividends"
	SectionInterest           = "Interest"
	SectionWithholdingTax     = "Withholding Tax"
	SectionPerformanceSummary = "Realized & Unrealized Performance Summary"
)

// Package layout maps the sheet's header labels onto the fields the dashboard
// understands, so a society whose sheet uses different headings can still be
// loaded.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

// ColumnMapping gives the header label of each known field. Empty entries
// keep the default label.
type ColumnMapping struct {
	RegularMaintenance string `yaml:"regular_maintenance"`
	ShopArea           string `yaml:"shop_area"`
	ParkingArea        string `yaml:"parking_area"`
	BikeCount          string `yaml:"bike_count"`
	CycleCount         string `yaml:"cycle_count"`
	MonthsDue          string `yaml:"months_due"`
	TotalPerMonth      string `yaml:"total_per_month"`
	TotalOutstanding   string `yaml:"total_outstanding"`
}

// Layout represents the complete sheet layout configuration.
type Layout struct {
	// LabelColumn names the header used to label rows in the edit grid
	// (e.g. "Flat No"). Rows are numbered when it is empty or absent.
	LabelColumn string        `yaml:"label_column"`
	Columns     ColumnMapping `yaml:"columns"`
}

// Default returns the layout of the society sheet.
func Default() *Layout {
	c := dues.DefaultColumns()
	return &Layout{
		LabelColumn: "Flat No",
		Columns: ColumnMapping{
			RegularMaintenance: c.RegularMaintenance,
			ShopArea:           c.ShopArea,
			ParkingArea:        c.ParkingArea,
			BikeCount:          c.BikeCount,
			CycleCount:         c.CycleCount,
			MonthsDue:          c.MonthsDue,
			TotalPerMonth:      c.TotalPerMonth,
			TotalOutstanding:   c.TotalOutstanding,
		},
	}
}

// Load reads a layout from a YAML file, filling unset labels from Default.
// An empty path returns Default.
func Load(path string) (*Layout, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return Parse(data)
}

// Parse decodes layout YAML, filling unset labels from Default.
func Parse(data []byte) (*Layout, error) {
	l := Default()
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	l.fillDefaults()

	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// fillDefaults restores default labels that the file blanked out.
func (l *Layout) fillDefaults() {
	d := Default().Columns
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&l.Columns.RegularMaintenance, d.RegularMaintenance)
	fill(&l.Columns.ShopArea, d.ShopArea)
	fill(&l.Columns.ParkingArea, d.ParkingArea)
	fill(&l.Columns.BikeCount, d.BikeCount)
	fill(&l.Columns.CycleCount, d.CycleCount)
	fill(&l.Columns.MonthsDue, d.MonthsDue)
	fill(&l.Columns.TotalPerMonth, d.TotalPerMonth)
	fill(&l.Columns.TotalOutstanding, d.TotalOutstanding)
}

// Validate rejects layouts that map two fields onto one header.
func (l *Layout) Validate() error {
	seen := make(map[string]bool)
	for _, label := range l.DuesColumns().Required() {
		if seen[label] {
			return fmt.Errorf("layout maps more than one field to header %q", label)
		}
		seen[label] = true
	}
	return nil
}

// DuesColumns returns the header labels in the form the dues package uses.
func (l *Layout) DuesColumns() dues.Columns {
	return dues.Columns{
		RegularMaintenance: l.Columns.RegularMaintenance,
		ShopArea:           l.Columns.ShopArea,
		ParkingArea:        l.Columns.ParkingArea,
		BikeCount:          l.Columns.BikeCount,
		CycleCount:         l.Columns.CycleCount,
		MonthsDue:          l.Columns.MonthsDue,
		TotalPerMonth:      l.Columns.TotalPerMonth,
		TotalOutstanding:   l.Columns.TotalOutstanding,
	}
}

// RowLabel returns the label of the row at position, falling back to its
// one-based number.
func (l *Layout) RowLabel(t *dues.Table, position int) string {
	if l.LabelColumn != "" {
		if v, err := t.Cell(position, l.LabelColumn); err == nil && v != "" {
			return v
		}
	}
	return fmt.Sprintf("%d", position+1)
}

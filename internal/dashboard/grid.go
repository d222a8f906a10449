package dashboard

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
	"github.com/shunichi-ikebuchi/society-dues/pkg/session"
)

const cellPrefix = "cell-"

// cellName is the form field of the grid input at (position, editable column index).
func cellName(position, column int) string {
	return fmt.Sprintf("%s%d-%d", cellPrefix, position, column)
}

func parseCellName(name string) (position, column int, ok bool) {
	rest, found := strings.CutPrefix(name, cellPrefix)
	if !found {
		return 0, 0, false
	}
	p, c, found := strings.Cut(rest, "-")
	if !found {
		return 0, 0, false
	}
	position, err := strconv.Atoi(p)
	if err != nil || position < 0 {
		return 0, 0, false
	}
	column, err = strconv.Atoi(c)
	if err != nil || column < 0 {
		return 0, 0, false
	}
	return position, column, true
}

// validCount reports whether v may be stored in an editable column:
// blank, or a whole number from 0 to dues.MaxCount.
func validCount(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	n, err := strconv.Atoi(v)
	return err == nil && n >= 0 && n <= dues.MaxCount
}

func rejection(position int, column, value string) string {
	return fmt.Sprintf("Row %d, %s: %q is not a whole number from 0 to %d", position+1, column, value, dues.MaxCount)
}

// unchanged reports whether value matches the working cell, in which case
// the cell is neither validated nor applied.
func unchanged(working *dues.Table, position int, column, value string) bool {
	current, err := working.Cell(position, column)
	return err == nil && current == strings.TrimSpace(value)
}

// parseGrid turns the changed cells of the submitted grid into edits ordered
// by row then column. Changed cells that fail validCount are returned as
// rejection messages instead.
func parseGrid(form url.Values, editable []string, working *dues.Table) ([]session.Edit, []string) {
	type key struct{ pos, col int }
	var keys []key
	values := make(map[key]string)

	for name, vs := range form {
		pos, col, ok := parseCellName(name)
		if !ok || col >= len(editable) || len(vs) == 0 {
			continue
		}
		k := key{pos, col}
		keys = append(keys, k)
		values[k] = vs[0]
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pos != keys[j].pos {
			return keys[i].pos < keys[j].pos
		}
		return keys[i].col < keys[j].col
	})

	var edits []session.Edit
	var rejected []string
	for _, k := range keys {
		v := values[k]
		if unchanged(working, k.pos, editable[k.col], v) {
			continue
		}
		if !validCount(v) {
			rejected = append(rejected, rejection(k.pos, editable[k.col], v))
			continue
		}
		edits = append(edits, session.Edit{Position: k.pos, Column: editable[k.col], Value: v})
	}
	return edits, rejected
}

// filterEdits splits API edits into valid ones and rejection messages.
// Edits of non-editable columns and unchanged cells pass through; the scan
// ignores them.
func filterEdits(edits []session.Edit, cols dues.Columns, working *dues.Table) ([]session.Edit, []string) {
	var valid []session.Edit
	var rejected []string
	for _, e := range edits {
		if cols.IsEditable(e.Column) && !unchanged(working, e.Position, e.Column, e.Value) && !validCount(e.Value) {
			rejected = append(rejected, rejection(e.Position, e.Column, e.Value))
			continue
		}
		valid = append(valid, e)
	}
	return valid, rejected
}

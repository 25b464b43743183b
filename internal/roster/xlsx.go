package roster

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/roster-enrich/internal/model"
)

// XLSXOptions configures spreadsheet roster loading.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// LoadXLSX reads users from a spreadsheet whose first row holds the column
// names. Blank cells are left out of the user record.
func LoadXLSX(path string, opts XLSXOptions) ([]model.User, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return []model.User{}, nil
	}

	header := rowToStrings(sheet.Rows[0])
	users := make([]model.User, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		u := model.User{}
		for j, col := range header {
			col = strings.TrimSpace(col)
			if col == "" || j >= len(cells) || strings.TrimSpace(cells[j]) == "" {
				continue
			}
			u[col] = cells[j]
		}
		if len(u) == 0 {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("roster: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("roster: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

package sheets

import (
	"fmt"
	"strconv"
)

// Grid is one fetched rectangular range: rows of heterogeneous cells as the
// values endpoint returns them (strings, JSON numbers, bools). Never assume
// a single concrete type per column; use CellText to read a cell.
type Grid [][]any

// CellText renders a cell the way a spreadsheet user sees it. Numeric cells
// come back as float64 from JSON decoding; format them without an exponent
// and without a trailing ".0" for whole numbers.
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}

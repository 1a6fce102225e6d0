package application

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ColumnMapping names the spreadsheet headers holding the well known
// directory fields. Header matching ignores case and surrounding whitespace.
type ColumnMapping struct {
	// PhoneColumns are tried in order; the first non-empty value wins.
	PhoneColumns   []string
	NameColumn     string
	CodeColumn     string
	CategoryColumn string
}

// DefaultColumnMapping returns the headers used by the member master sheet.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		PhoneColumns:   []string{"Mobile no", "Mobile", "Phone"},
		NameColumn:     "Name",
		CodeColumn:     "UJB Code",
		CategoryColumn: "Category",
	}
}

func (m ColumnMapping) withDefaults() ColumnMapping {
	defaults := DefaultColumnMapping()
	if len(m.PhoneColumns) == 0 {
		m.PhoneColumns = defaults.PhoneColumns
	}
	if m.NameColumn == "" {
		m.NameColumn = defaults.NameColumn
	}
	if m.CodeColumn == "" {
		m.CodeColumn = defaults.CodeColumn
	}
	if m.CategoryColumn == "" {
		m.CategoryColumn = defaults.CategoryColumn
	}
	return m
}

// Phone returns the stringified phone of row and whether one was present.
func (m ColumnMapping) Phone(row map[string]any) (string, bool) {
	for _, column := range m.PhoneColumns {
		if value, ok := lookupColumn(row, column); ok {
			if phone := CellString(value); phone != "" {
				return phone, true
			}
		}
	}
	return "", false
}

// Record resolves the well known columns of a directory entry.
func (m ColumnMapping) Record(entry DirectoryEntry) DirectoryRecord {
	return DirectoryRecord{
		Phone:      entry.Phone,
		Name:       m.text(entry.Fields, m.NameColumn),
		Code:       m.text(entry.Fields, m.CodeColumn),
		Category:   m.text(entry.Fields, m.CategoryColumn),
		Attributes: entry.Fields,
	}
}

func (m ColumnMapping) text(fields map[string]any, column string) string {
	value, ok := lookupColumn(fields, column)
	if !ok {
		return ""
	}
	return CellString(value)
}

func lookupColumn(fields map[string]any, column string) (any, bool) {
	if value, ok := fields[column]; ok {
		return value, true
	}
	want := normalizeHeader(column)
	for header, value := range fields {
		if normalizeHeader(header) == want {
			return value, true
		}
	}
	return nil, false
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.Join(strings.Fields(header), " "))
}

// CellString renders a spreadsheet cell as text. Integral numbers print
// without a decimal point so numeric phone cells keep their digits.
func CellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

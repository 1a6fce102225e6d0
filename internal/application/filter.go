package application

import "strings"

// FilterRoster returns the rows matching every non-empty criterion of
// filter. Matching is a case-insensitive substring test; an absent field is
// treated as the empty string. Empty criteria return rows unchanged.
func FilterRoster(rows []RosterRow, filter RosterFilter) []RosterRow {
	if filter == (RosterFilter{}) {
		return rows
	}

	out := make([]RosterRow, 0, len(rows))
	for _, row := range rows {
		if containsFold(row.Phone, filter.RegisteredNumber) &&
			containsFold(row.Code, filter.Code) &&
			containsFold(row.Name, filter.Name) &&
			containsFold(row.Category, filter.Category) {
			out = append(out, row)
		}
	}
	return out
}

func containsFold(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(needle))
}

package core

import "strings"

type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrderings parses a comma separated list of fields, "-" prefixed fields being descending.
// e.g. "-batch,start_date"
func ParseOrderings(val string) []Ordering {
	var orderings []Ordering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		orderings = append(orderings, Ordering{Field: field, Ascending: !descending})
	}
	return orderings
}

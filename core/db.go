package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops orderings on fields that are not in allowed.
func CleanOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	if len(orderings) == 0 {
		return nil
	}
	ok := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		ok[f] = true
	}
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		ord.Field = strings.ToLower(strings.TrimSpace(ord.Field))
		if ok[ord.Field] {
			cleaned = append(cleaned, ord)
		}
	}
	return cleaned
}

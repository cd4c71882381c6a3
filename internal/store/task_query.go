package store

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// TaskField names a sortable task attribute independent of any storage schema.
type TaskField string

// Sortable task fields.
const (
	TaskFieldCreatedAt   TaskField = "createdAt"
	TaskFieldUpdatedAt   TaskField = "updatedAt"
	TaskFieldDescription TaskField = "description"
	TaskFieldCompleted   TaskField = "completed"
)

var sortableTaskFields = map[string]TaskField{
	string(TaskFieldCreatedAt):   TaskFieldCreatedAt,
	string(TaskFieldUpdatedAt):   TaskFieldUpdatedAt,
	string(TaskFieldDescription): TaskFieldDescription,
	string(TaskFieldCompleted):   TaskFieldCompleted,
}

// Query parameter names accepted by ParseTaskQuery.
const (
	ParamCompleted = "completed"
	ParamSortBy    = "sortBy"
	ParamLimit     = "limit"
	ParamSkip      = "skip"
)

// TaskQuery describes a listing of one owner's tasks. OwnerID is mandatory;
// every other field only narrows or orders that owner's set.
type TaskQuery struct {
	OwnerID uuid.UUID

	// Completed filters on completion state when non-nil.
	Completed *bool

	// SortField is empty when no ordering was requested.
	SortField TaskField
	SortDesc  bool

	// Limit and Skip are ignored when zero.
	Limit int
	Skip  int
}

// ParseTaskQuery builds a TaskQuery for ownerID from raw query parameters.
// It never fails: unusable parameters are dropped.
//
//   - completed: present means filter; only the literal "true" selects
//     completed tasks, any other value (including empty) selects incomplete ones.
//   - sortBy: "<field>_<direction>", split on the first underscore; "desc"
//     sorts descending, anything else ascending. Unknown fields are ignored.
//   - limit, skip: leading integer prefix; non-numeric or non-positive values
//     mean unbounded.
func ParseTaskQuery(ownerID uuid.UUID, params url.Values) TaskQuery {
	q := TaskQuery{OwnerID: ownerID}

	if values, ok := params[ParamCompleted]; ok {
		completed := len(values) > 0 && values[0] == "true"
		q.Completed = &completed
	}

	if sortBy := params.Get(ParamSortBy); sortBy != "" {
		name, direction, _ := strings.Cut(sortBy, "_")
		if field, ok := sortableTaskFields[name]; ok {
			q.SortField = field
			q.SortDesc = direction == "desc"
		}
	}

	if n, ok := parseLeadingInt(params.Get(ParamLimit)); ok && n > 0 {
		q.Limit = n
	}
	if n, ok := parseLeadingInt(params.Get(ParamSkip)); ok && n > 0 {
		q.Skip = n
	}

	return q
}

// parseLeadingInt reads an optionally signed base-10 integer prefix after
// leading whitespace, so "10abc" yields 10 and "abc" yields false.
// Values that overflow an int are rejected.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	if s == "" {
		return 0, false
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	const maxInt = int(^uint(0) >> 1)
	n, digits := 0, 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		d := int(s[digits] - '0')
		if n > (maxInt-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	if digits == 0 {
		return 0, false
	}

	if neg {
		n = -n
	}
	return n, true
}

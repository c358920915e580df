package dummydb

import (
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
)

// lessFn compares two rows on a single field; 0 means equal or unknown field.
type lessFn func(i, j int, field string) int

func sortWith(ordering []core.DBOrdering, cmp lessFn) func(i, j int) bool {
	return func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpStr(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

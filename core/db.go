package core

// DBOrdering expresses one ORDER BY term of a list query.
// List endpoints expose it via the "ordering" query param; each resource
// documents its default ordering instead of hiding it in the store.
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

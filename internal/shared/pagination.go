package shared

// Page describes a keyset page request. After is the last id of the previous page.
type Page struct {
	Limit int
	After string
}

// NewPage clamps the requested limit to (0, max]. A non-positive request uses max.
func NewPage(limit, max int, after string) Page {
	if max <= 0 {
		max = 20
	}
	if limit <= 0 || limit > max {
		limit = max
	}
	return Page{Limit: limit, After: after}
}

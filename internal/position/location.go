package position

// Location is a range within a named document. It is the unit of answer for
// goto-definition and references.
type Location struct {
	URI   string
	Range Range
}

// String returns "uri:start-end".
func (l Location) String() string {
	return l.URI + ":" + l.Range.String()
}

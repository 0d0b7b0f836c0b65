package papers

import "time"

// Paper is one row of the registry. A row with an empty AdoptedFrom was
// registered (processed) by its uploader; otherwise it was added from the
// shared registry and reuses the origin's processing reference.
type Paper struct {
	ID                  string
	Name                string
	Title               string
	ProcessingReference string
	UploadedBy          string
	UploadedAt          time.Time
	AdoptedFrom         string
}

// Registered reports whether the row owns its processing reference.
func (p Paper) Registered() bool {
	return p.AdoptedFrom == ""
}

// Listing is a paper joined with its uploader's username.
type Listing struct {
	Paper
	Username string
}

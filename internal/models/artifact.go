package models

// Artifact is a downloadable file produced by an export.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

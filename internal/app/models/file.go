package models

// StoredFile references an uploaded file on disk. Path is relative to the storage
// root and keyed by a random name; OriginalName is kept as metadata only.
type StoredFile struct {
	Path         string `json:"path"`
	URL          string `json:"url"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

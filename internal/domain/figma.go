package domain

// URLKind classifies a Figma URL.
type URLKind string

const (
	URLKindFile    URLKind = "file"
	URLKindUnknown URLKind = "unknown"
)

// URLType is the classified shape of a Figma URL. FileID and NodeID are set
// only for file URLs; NodeID is kept exactly as it appeared in the query.
type URLType struct {
	Kind   URLKind `json:"kind"`
	FileID string  `json:"file_id,omitempty"`
	NodeID *string `json:"node_id,omitempty"`
}

// URLInfo is the result of resolving a Figma URL.
type URLInfo struct {
	URLType     URLType `json:"url_type"`
	OriginalURL string  `json:"original_url"`
}

func (i URLInfo) IsFile() bool {
	return i.URLType.Kind == URLKindFile
}

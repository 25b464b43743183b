package model

// LinkKind records where a link was derived from.
type LinkKind string

const (
	// LinkKindHandle is a primary link built from an explicit handle field.
	LinkKindHandle LinkKind = "primary-handle"
	// LinkKindText is a link matched in free text.
	LinkKindText LinkKind = "text"
)

// LinkRecord is one output row of a link artifact.
type LinkRecord struct {
	Identifier string   `json:"GitHub Username"`
	Link       string   `json:"Link"`
	Kind       LinkKind `json:"-"`
}

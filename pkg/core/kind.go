package core

import "fmt"

// Kind identifies one of the searchable collections. Snippets and snapshots
// share the same search algorithm; Kind parameterizes the collection, the
// projection and the key used for the item list in API responses.
type Kind string

const (
	KindSnippets  Kind = "snippets"
	KindSnapshots Kind = "snapshots"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindSnippets, KindSnapshots}

// ParseKind converts user input ("snippet", "Snapshots", ...) into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "snippets", "snippet", "Snippets", "Snippet":
		return KindSnippets, nil
	case "snapshots", "snapshot", "Snapshots", "Snapshot":
		return KindSnapshots, nil
	}
	return "", fmt.Errorf("unknown kind %q (want snippets or snapshots)", s)
}

// String returns the collection name.
func (k Kind) String() string {
	return string(k)
}

// Singular returns the name of a single item of this kind, used for the
// response key of by-id lookups ("snippet", "snapshot").
func (k Kind) Singular() string {
	switch k {
	case KindSnippets:
		return "snippet"
	case KindSnapshots:
		return "snapshot"
	}
	return string(k)
}

// Label returns the capitalized collection name for user-facing messages.
func (k Kind) Label() string {
	switch k {
	case KindSnippets:
		return "Snippets"
	case KindSnapshots:
		return "Snapshots"
	}
	return string(k)
}

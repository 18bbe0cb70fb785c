package document

import "github.com/inamate/diagram/internal/model"

// FormatVersion is the document format written by Encode.
const FormatVersion = 1

type Document struct {
	Meta  Meta       `json:"meta"`
	Root  string     `json:"root"`
	Cells []CellNode `json:"cells"`
}

type Meta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type CellKind string

const (
	CellKindLayer  CellKind = "layer"
	CellKindVertex CellKind = "vertex"
	CellKindEdge   CellKind = "edge"
)

// CellNode is one element of the tree. Nodes are listed parents first, in
// child order, so decoding can append each node to an existing parent.
type CellNode struct {
	ID          string          `json:"id"`
	Kind        CellKind        `json:"kind"`
	Parent      string          `json:"parent"`
	Source      string          `json:"source,omitempty"`
	Target      string          `json:"target,omitempty"`
	Value       any             `json:"value,omitempty"`
	Geometry    *model.Geometry `json:"geometry,omitempty"`
	Style       map[string]any  `json:"style,omitempty"`
	Visible     bool            `json:"visible"`
	Collapsed   bool            `json:"collapsed,omitempty"`
	Connectable bool            `json:"connectable"`
}

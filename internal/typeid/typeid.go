package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixCell     = "cell"
	PrefixEdge     = "edge"
	PrefixLayer    = "layer"
	PrefixEdit     = "edit"
	PrefixSession  = "sess"
	PrefixOp       = "op"
	PrefixOverlay  = "ovl"
	PrefixSnapshot = "snap"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewCellID() string     { return New(PrefixCell) }
func NewEdgeID() string     { return New(PrefixEdge) }
func NewLayerID() string    { return New(PrefixLayer) }
func NewEditID() string     { return New(PrefixEdit) }
func NewSessionID() string  { return New(PrefixSession) }
func NewOpID() string       { return New(PrefixOp) }
func NewOverlayID() string  { return New(PrefixOverlay) }
func NewSnapshotID() string { return New(PrefixSnapshot) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}

package document

import (
	"time"

	"github.com/inamate/diagram/internal/model"
	"github.com/inamate/diagram/internal/typeid"
)

// NewSampleDocument returns a small flowchart: a start and an end node, a
// decision, and a swimlane holding two process steps.
func NewSampleDocument(id string) *Document {
	now := time.Now().UTC().Format(time.RFC3339)

	layerID := typeid.NewLayerID()
	startID := typeid.NewCellID()
	laneID := typeid.NewCellID()
	stepAID := typeid.NewCellID()
	stepBID := typeid.NewCellID()
	decisionID := typeid.NewCellID()
	endID := typeid.NewCellID()

	vertex := func(id, parent, label string, x, y, w, h float64, st map[string]any) CellNode {
		return CellNode{
			ID:          id,
			Kind:        CellKindVertex,
			Parent:      parent,
			Value:       label,
			Geometry:    model.NewGeometry(x, y, w, h),
			Style:       st,
			Visible:     true,
			Connectable: true,
		}
	}
	edge := func(source, target, label string, st map[string]any) CellNode {
		return CellNode{
			ID:          typeid.NewEdgeID(),
			Kind:        CellKindEdge,
			Parent:      layerID,
			Source:      source,
			Target:      target,
			Value:       label,
			Geometry:    &model.Geometry{Relative: true},
			Style:       st,
			Visible:     true,
			Connectable: true,
		}
	}

	return &Document{
		Meta: Meta{
			ID:        id,
			Name:      "Untitled",
			Version:   FormatVersion,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Root: "root",
		Cells: []CellNode{
			{ID: layerID, Kind: CellKindLayer, Parent: "root", Visible: true},
			vertex(startID, layerID, "Start", 40, 40, 120, 40, map[string]any{
				"shape": "ellipse", "perimeter": "ellipse", "fillColor": "#d5e8d4", "strokeColor": "#82b366",
			}),
			vertex(laneID, layerID, "Processing", 220, 20, 260, 200, map[string]any{
				"shape": "swimlane", "startSize": 30.0, "container": true, "fillColor": "#f5f5f5",
			}),
			vertex(stepAID, laneID, "Validate", 70, 50, 120, 40, map[string]any{"fillColor": "#dae8fc"}),
			vertex(stepBID, laneID, "Transform", 70, 130, 120, 40, map[string]any{"fillColor": "#dae8fc"}),
			vertex(decisionID, layerID, "OK?", 560, 80, 80, 80, map[string]any{
				"shape": "rhombus", "perimeter": "rhombus", "fillColor": "#fff2cc",
			}),
			vertex(endID, layerID, "End", 540, 260, 120, 40, map[string]any{
				"shape": "ellipse", "perimeter": "ellipse", "fillColor": "#f8cecc",
			}),
			edge(startID, stepAID, "", nil),
			edge(stepAID, stepBID, "", nil),
			edge(stepBID, decisionID, "", map[string]any{"edgeStyle": "elbow"}),
			edge(decisionID, endID, "yes", nil),
			edge(decisionID, stepAID, "no", map[string]any{"edgeStyle": "orthogonal"}),
		},
	}
}

// Package export renders layout frames as SVG.
package export

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/san-kum/traitfield/internal/layout"
	"github.com/san-kum/traitfield/internal/viz"
)

const (
	background   = "#0a0a0a"
	centralColor = "#ffd700"
)

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// CanvasToSVG converts a braille canvas to SVG, one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64, color string) string {
	if canvas == nil {
		return ""
	}
	pw, ph := canvas.Pixels()

	var sb strings.Builder
	header(&sb, int(math.Ceil(float64(pw)*scale)), int(math.Ceil(float64(ph)*scale)))
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", color)
	dotRadius := scale * 0.4
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if canvas.Lit(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// CompatColor maps compatibility in [0, 1] from red to green.
func CompatColor(c float64) string {
	c = math.Max(0, math.Min(1, c))
	r := int(math.Round(255 * (1 - c)))
	g := int(math.Round(255 * c))
	return fmt.Sprintf("#%02x%02x40", r, g)
}

// SnapshotSVG draws one frame through cam. Outer nodes are colored by
// compatibility with the central node and linked to it by a spoke whose
// opacity is that compatibility. Each node carries its id as a title.
func SnapshotSVG(snap layout.Snapshot, cam *viz.Camera, width, height int) string {
	var sb strings.Builder
	header(&sb, width, height)
	if len(snap.Nodes) == 0 || snap.Central < 0 || snap.Central >= len(snap.Nodes) {
		sb.WriteString("</svg>")
		return sb.String()
	}

	cx, cy, _, cvis := cam.Project(snap.Nodes[snap.Central].Position, width, height)
	sb.WriteString("<g stroke=\"#888888\" stroke-width=\"1\">\n")
	for i, n := range snap.Nodes {
		if i == snap.Central || !cvis {
			continue
		}
		x, y, _, ok := cam.Project(n.Position, width, height)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "<line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\" stroke-opacity=\"%.2f\"/>\n",
			cx, cy, x, y, n.Compatibility)
	}
	sb.WriteString("</g>\n")

	for i, n := range snap.Nodes {
		x, y, _, ok := cam.Project(n.Position, width, height)
		if !ok {
			continue
		}
		color, r := CompatColor(n.Compatibility), 3+3*n.Compatibility
		if i == snap.Central {
			color, r = centralColor, 8
		}
		fmt.Fprintf(&sb, "<circle cx=\"%d\" cy=\"%d\" r=\"%.1f\" fill=\"%s\"><title>%s</title></circle>\n",
			x, y, r, color, html.EscapeString(n.ID))
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// TrajectoryToSVG traces one node's projected path across frames. Frames
// where the node is missing or off screen break the path.
func TrajectoryToSVG(frames []layout.Snapshot, nodeID string, cam *viz.Camera, width, height int, strokeColor string) string {
	var sb strings.Builder
	header(&sb, width, height)

	var path strings.Builder
	pen := false
	for _, f := range frames {
		var found bool
		for _, n := range f.Nodes {
			if n.ID != nodeID {
				continue
			}
			found = true
			x, y, _, ok := cam.Project(n.Position, width, height)
			if !ok {
				pen = false
				break
			}
			if pen {
				fmt.Fprintf(&path, " L%d,%d", x, y)
			} else {
				fmt.Fprintf(&path, " M%d,%d", x, y)
				pen = true
			}
			break
		}
		if !found {
			pen = false
		}
	}
	if path.Len() > 0 {
		fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"%s\"/>\n",
			strokeColor, strings.TrimSpace(path.String()))
	}
	sb.WriteString("</svg>")
	return sb.String()
}

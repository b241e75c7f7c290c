package viz

import (
	"math"

	"github.com/san-kum/traitfield/internal/geom"
	"github.com/san-kum/traitfield/internal/layout"
)

const (
	nearPlane  = 0.1
	minExtent  = 1.0
	followRate = 0.1
	// strongLink is the compatibility above which a spoke to the central
	// node is drawn.
	strongLink = 0.75
)

// Camera projects world positions onto the canvas. Extent is the world
// radius around Target that fills the shorter half of the screen at Zoom 1.
type Camera struct {
	Target           geom.Vec3
	RotX, RotY, RotZ float64
	Zoom             float64
	Extent           float64
	Distance         float64
}

func NewCamera() *Camera {
	return &Camera{RotX: -0.35, Zoom: 1, Distance: 4}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// RotatePoint rotates p about the origin by the camera's angles, X then Y
// then Z.
func (c *Camera) RotatePoint(p geom.Vec3) geom.Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// Project converts a world position to screen coordinates on a sw x sh pixel
// grid. It returns x, y, depth and whether the point lands on screen.
func (c *Camera) Project(p geom.Vec3, sw, sh int) (int, int, float64, bool) {
	ext := c.Extent
	if ext <= 0 {
		ext = minExtent
	}
	rot := c.RotatePoint(p.Sub(c.Target)).Scale(c.Zoom / ext)
	dist := c.Distance
	if rot.Z >= dist-nearPlane {
		return 0, 0, 0, false
	}
	scale := dist / (dist - rot.Z)
	half := float64(min(sw, sh)) / 2
	sx := int(math.Round(rot.X*scale*half)) + sw/2
	sy := int(math.Round(-rot.Y*scale*half)) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

// Follow centers the camera on the central node and eases Extent toward the
// radius of the farthest node.
func (c *Camera) Follow(s layout.Snapshot) {
	if len(s.Nodes) == 0 || s.Central < 0 || s.Central >= len(s.Nodes) {
		return
	}
	center := s.Nodes[s.Central].Position
	far := 0.0
	for _, n := range s.Nodes {
		far = math.Max(far, n.Position.Distance(center))
	}
	want := math.Max(far*1.2, minExtent)
	if c.Extent <= 0 {
		c.Extent = want
	} else {
		c.Extent += (want - c.Extent) * followRate
	}
	c.Target = center
}

// RenderLayout draws s onto c. Strongly compatible nodes get a spoke to the
// central node; dot size grows with compatibility.
func RenderLayout(c *Canvas, cam *Camera, s layout.Snapshot) {
	c.Clear()
	if len(s.Nodes) == 0 || s.Central < 0 || s.Central >= len(s.Nodes) {
		return
	}
	sw, sh := c.Pixels()
	cx, cy, _, cvis := cam.Project(s.Nodes[s.Central].Position, sw, sh)

	for i, n := range s.Nodes {
		if i == s.Central {
			continue
		}
		x, y, _, ok := cam.Project(n.Position, sw, sh)
		if !ok {
			continue
		}
		if cvis && n.Compatibility >= strongLink {
			c.DrawDashed(cx, cy, x, y, 2)
		}
		c.Disc(x, y, nodeRadius(n.Compatibility))
	}
	if cvis {
		c.Disc(cx, cy, 2)
		c.DrawLine(cx-4, cy, cx+4, cy)
		c.DrawLine(cx, cy-4, cx, cy+4)
	}
}

func nodeRadius(compat float64) int {
	switch {
	case compat >= strongLink:
		return 2
	case compat >= 0.4:
		return 1
	}
	return 0
}

package force

import "github.com/san-kum/traitfield/internal/geom"

// Repulsion returns the equal and opposite forces on a and b. ok is false
// when the pair is out of range or coincident, in which case no force
// applies.
func Repulsion(a, b geom.Vec3, similarity float64, p Params) (fa, fb geom.Vec3, ok bool) {
	d := b.Sub(a)
	dist := d.Length()
	if dist == 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	minSep := p.MinSep()
	if dist >= minSep {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	mag := clamp(p.KRepulsion*similarity*(minSep-dist), 0, p.RepulsionClamp)
	dir := d.Scale(1 / dist)
	return dir.Scale(-mag), dir.Scale(mag), true
}

// Accumulate returns the net force on every node. The central node's entry
// is always zero: it is fixed or driven externally.
//
// compat[i] is node i's compatibility with the central node; sim[i][j] is the
// similarity of nodes i and j. Both are indexed like positions.
func Accumulate(law Law, positions []geom.Vec3, central int, compat []float64, sim [][]float64, p Params) []geom.Vec3 {
	n := len(positions)
	forces := make([]geom.Vec3, n)
	if central < 0 || central >= n {
		return forces
	}
	cp := positions[central]

	for i := 0; i < n; i++ {
		if i == central {
			continue
		}
		forces[i] = forces[i].Add(law.Central(positions[i], cp, compat[i], p))
	}

	for i := 0; i < n; i++ {
		if i == central {
			continue
		}
		for j := i + 1; j < n; j++ {
			if j == central {
				continue
			}
			fi, fj, ok := Repulsion(positions[i], positions[j], sim[i][j], p)
			if !ok {
				continue
			}
			forces[i] = forces[i].Add(fi)
			forces[j] = forces[j].Add(fj)
		}
	}

	return forces
}

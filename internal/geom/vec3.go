// Package geom holds the small amount of 3D vector math the layout engine
// needs. Values are plain structs and every method returns a new value.
package geom

import "math"

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) LengthSq() float64    { return v.Dot(v) }
func (v Vec3) Length() float64      { return math.Sqrt(v.LengthSq()) }
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{v.Y*o.Z - v.Z*o.Y, v.Z*o.X - v.X*o.Z, v.X*o.Y - v.Y*o.X}
}

// AddScaled returns v + o*s.
func (v Vec3) AddScaled(o Vec3, s float64) Vec3 {
	return Vec3{v.X + o.X*s, v.Y + o.Y*s, v.Z + o.Z*s}
}

// Normalize returns the unit vector, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	if l := v.Length(); l != 0 {
		return v.Scale(1 / l)
	}
	return Vec3{}
}

// Distance returns |v - o|.
func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Length() }

// WithLength rescales v to length l keeping its direction.
func (v Vec3) WithLength(l float64) Vec3 { return v.Normalize().Scale(l) }

// RotateY rotates v about the +Y axis through pivot by angle radians.
func (v Vec3) RotateY(pivot Vec3, angle float64) Vec3 {
	c, s := math.Cos(angle), math.Sin(angle)
	d := v.Sub(pivot)
	return Vec3{
		X: pivot.X + d.X*c + d.Z*s,
		Y: v.Y,
		Z: pivot.Z - d.X*s + d.Z*c,
	}
}

func (v Vec3) IsValid() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Array returns the components as a fixed array, handy for CSV rows.
func (v Vec3) Array() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

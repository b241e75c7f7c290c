package geom

import (
	"math"
	"testing"
)

func TestVec3_Arithmetic(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	if got := a.Add(b); got != (Vec3{5, 7, 9}) {
		t.Errorf("Add failed: got %v", got)
	}
	if got := b.Sub(a); got != (Vec3{3, 3, 3}) {
		t.Errorf("Sub failed: got %v", got)
	}
	if got := a.Scale(2); got != (Vec3{2, 4, 6}) {
		t.Errorf("Scale failed: got %v", got)
	}
	if got := a.AddScaled(b, 0.5); got != (Vec3{3, 4.5, 6}) {
		t.Errorf("AddScaled failed: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot failed: got %v", got)
	}
	if got := (Vec3{1, 0, 0}).Cross(Vec3{0, 1, 0}); got != (Vec3{0, 0, 1}) {
		t.Errorf("Cross failed: got %v", got)
	}
}

func TestVec3_Length(t *testing.T) {
	tests := []struct {
		v        Vec3
		expected float64
	}{
		{Vec3{3, 4, 0}, 5},
		{Vec3{0, 0, 0}, 0},
		{Vec3{1, 2, 2}, 3},
	}

	for _, tt := range tests {
		if got := tt.v.Length(); math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("Length(%v) = %v, want %v", tt.v, got, tt.expected)
		}
	}
}

func TestVec3_NormalizeZero(t *testing.T) {
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("Normalize of zero vector = %v, want zero", got)
	}
	if got := (Vec3{0, 0, 7}).Normalize(); got != (Vec3{0, 0, 1}) {
		t.Errorf("Normalize = %v", got)
	}
}

func TestVec3_WithLength(t *testing.T) {
	v := Vec3{3, 4, 0}.WithLength(10)
	if math.Abs(v.Length()-10) > 1e-12 {
		t.Errorf("expected length 10, got %f", v.Length())
	}
	if math.Abs(v.X/v.Y-0.75) > 1e-12 {
		t.Errorf("direction changed: %v", v)
	}
}

func TestVec3_RotateY(t *testing.T) {
	pivot := Vec3{1, 0, 1}
	p := Vec3{3, 5, 1}

	r := p.RotateY(pivot, math.Pi/2)
	if math.Abs(r.Distance(pivot)-p.Distance(pivot)) > 1e-12 {
		t.Errorf("rotation changed distance to pivot: %v", r)
	}
	if r.Y != 5 {
		t.Errorf("rotation about Y moved Y: %v", r)
	}
	if math.Abs(r.X-1) > 1e-12 || math.Abs(r.Z-(-1)) > 1e-12 {
		t.Errorf("unexpected rotated point %v", r)
	}

	if got := p.RotateY(pivot, 0); got != p {
		t.Errorf("zero angle moved point: %v", got)
	}
}

func TestVec3_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		v     Vec3
		valid bool
	}{
		{"zero", Vec3{}, true},
		{"normal", Vec3{1, -2, 3}, true},
		{"nan", Vec3{math.NaN(), 0, 0}, false},
		{"inf", Vec3{0, math.Inf(1), 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

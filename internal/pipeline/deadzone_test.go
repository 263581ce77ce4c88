package pipeline

import (
	"testing"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

func TestDeadzoneClip(t *testing.T) {
	d := NewDeadzone(0.75)
	cases := []struct {
		in   float32
		want float32
	}{
		{0, 0},
		{0.3, 0},
		{-0.3, 0},
		{0.74, 0},
		{-0.74, 0},
		{0.75, 0.75},
		{-0.75, -0.75},
		{1.2, 1.2},
		{-9.8, -9.8},
	}
	for _, c := range cases {
		got := d.Apply(sensor.Vector3{X: c.in, Y: c.in, Z: c.in})
		if got.X != c.want || got.Y != c.want || got.Z != c.want {
			t.Errorf("Apply(%v) = %+v, want all %v", c.in, got, c.want)
		}
	}
}

func TestDeadzoneIdempotent(t *testing.T) {
	d := NewDeadzone(0.75)
	for _, in := range []float32{-2, -0.75, -0.4, 0, 0.2, 0.74, 0.75, 3.1} {
		once := d.Apply(sensor.Vector3{X: in})
		twice := d.Apply(once)
		if once != twice {
			t.Errorf("suppression of %v not stable: %+v then %+v", in, once, twice)
		}
	}
}

package pipeline

import (
	"testing"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

func TestQuatFilterFirstSampleFires(t *testing.T) {
	f := NewQuatFilter(0.02)
	if !f.Changed(sensor.Quaternion{W: 1}) {
		t.Fatal("unit quaternion must clear the zero-valued cache")
	}
}

func TestQuatFilterMonotonic(t *testing.T) {
	f := NewQuatFilter(0.02)
	q := sensor.Quaternion{W: 0.9, X: 0.1, Y: 0.2, Z: 0.3}
	if !f.Changed(q) {
		t.Fatal("first sample must fire")
	}
	if f.Changed(q) {
		t.Fatal("identical value fired twice")
	}
}

func TestQuatFilterStrictBoundary(t *testing.T) {
	f := NewQuatFilter(0.5)
	f.Changed(sensor.Quaternion{W: 1})

	// delta exactly the threshold on one component: squared distance
	// equals threshold squared and must not fire
	if f.Changed(sensor.Quaternion{W: 1.5}) {
		t.Fatal("fired at exactly threshold^2")
	}
	if !f.Changed(sensor.Quaternion{W: 1.501}) {
		t.Fatal("did not fire just past the threshold")
	}
}

func TestQuatFilterDriftMeasuredAgainstLastSent(t *testing.T) {
	f := NewQuatFilter(0.5)
	f.Changed(sensor.Quaternion{W: 1})

	// three sub-threshold steps that sum past the threshold
	if f.Changed(sensor.Quaternion{W: 1.2}) {
		t.Fatal("sub-threshold step fired")
	}
	if f.Changed(sensor.Quaternion{W: 1.4}) {
		t.Fatal("sub-threshold step fired")
	}
	if !f.Changed(sensor.Quaternion{W: 1.6}) {
		t.Fatal("accumulated drift past threshold must fire")
	}
}

func TestAccelFilterAnyAxisFires(t *testing.T) {
	cases := []struct {
		name string
		v    sensor.Vector3
		want bool
	}{
		{"still", sensor.Vector3{}, false},
		{"x past threshold", sensor.Vector3{X: 0.2}, true},
		{"y past threshold", sensor.Vector3{Y: -0.15}, true},
		{"z past threshold", sensor.Vector3{Z: 0.11}, true},
		{"all below threshold", sensor.Vector3{X: 0.05, Y: 0.05, Z: 0.05}, false},
		{"exactly threshold", sensor.Vector3{X: 0.1}, false},
	}
	for _, c := range cases {
		f := NewAccelFilter(0.1)
		if got := f.Changed(c.v); got != c.want {
			t.Errorf("%s: changed=%v, want %v", c.name, got, c.want)
		}
	}
}

func TestAccelFilterMonotonic(t *testing.T) {
	f := NewAccelFilter(0.1)
	v := sensor.Vector3{X: 1.5, Y: -0.3, Z: 9.8}
	if !f.Changed(v) {
		t.Fatal("first motion must fire")
	}
	if f.Changed(v) {
		t.Fatal("identical value fired twice")
	}
	if f.Changed(sensor.Vector3{X: 1.55, Y: -0.25, Z: 9.75}) {
		t.Fatal("all-axis sub-threshold wiggle fired")
	}
}

func TestBatteryFilterLevelOrState(t *testing.T) {
	f := NewBatteryFilter()
	steps := []struct {
		level float32
		state sensor.PowerState
		want  bool
	}{
		{87, sensor.PowerBattery, true},
		{87, sensor.PowerBattery, false},
		{86, sensor.PowerBattery, true},
		{86, sensor.PowerCharging, true},
		{86, sensor.PowerCharging, false},
		{101, sensor.PowerCharging, true},
	}
	for i, s := range steps {
		if got := f.Changed(s.level, s.state); got != s.want {
			t.Fatalf("step %d (%v/%v): changed=%v, want %v", i, s.level, s.state, got, s.want)
		}
	}
}

func TestButtonFilterEdgesOnly(t *testing.T) {
	f := NewButtonFilter()
	steps := []struct {
		pressed bool
		want    bool
	}{
		{false, false},
		{true, true},
		{true, false},
		{false, true},
		{false, false},
	}
	for i, s := range steps {
		if got := f.Changed(s.pressed); got != s.want {
			t.Fatalf("step %d (pressed=%v): changed=%v, want %v", i, s.pressed, got, s.want)
		}
	}
}

package pipeline

import "github.com/francesco-di-maggio/codecell/internal/sensor"

// Change filters decide, per stream and per cycle, whether the current
// value differs enough from the last transmitted one to be worth
// sending. Each filter owns its last-sent cache and advances it only
// when it fires, so sub-threshold drift accumulates against the last
// transmitted value instead of being silently absorbed sample by sample.

// QuatFilter fires when the squared Euclidean distance between the
// candidate and the last-sent quaternion strictly exceeds the squared
// threshold.
type QuatFilter struct {
	threshold float32
	last      sensor.Quaternion
}

func NewQuatFilter(threshold float32) *QuatFilter {
	return &QuatFilter{threshold: threshold}
}

func (f *QuatFilter) Changed(q sensor.Quaternion) bool {
	dw := q.W - f.last.W
	dx := q.X - f.last.X
	dy := q.Y - f.last.Y
	dz := q.Z - f.last.Z
	if dw*dw+dx*dx+dy*dy+dz*dz > f.threshold*f.threshold {
		f.last = q
		return true
	}
	return false
}

// AccelFilter fires when any single axis moved strictly more than the
// per-axis threshold away from its last-sent value.
type AccelFilter struct {
	threshold float32
	last      sensor.Vector3
}

func NewAccelFilter(threshold float32) *AccelFilter {
	return &AccelFilter{threshold: threshold}
}

func (f *AccelFilter) Changed(v sensor.Vector3) bool {
	if abs32(v.X-f.last.X) > f.threshold ||
		abs32(v.Y-f.last.Y) > f.threshold ||
		abs32(v.Z-f.last.Z) > f.threshold {
		f.last = v
		return true
	}
	return false
}

// BatteryFilter fires on any inequality in level or power state. Voltage
// and runtime are derived from these and never trigger on their own.
type BatteryFilter struct {
	lastLevel float32
	lastState sensor.PowerState
}

func NewBatteryFilter() *BatteryFilter {
	return &BatteryFilter{}
}

func (f *BatteryFilter) Changed(level float32, state sensor.PowerState) bool {
	if level == f.lastLevel && state == f.lastState {
		return false
	}
	f.lastLevel = level
	f.lastState = state
	return true
}

// ButtonFilter fires on any edge of one debounced input.
type ButtonFilter struct {
	last bool
}

func NewButtonFilter() *ButtonFilter {
	return &ButtonFilter{}
}

func (f *ButtonFilter) Changed(pressed bool) bool {
	if pressed == f.last {
		return false
	}
	f.last = pressed
	return true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

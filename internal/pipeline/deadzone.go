package pipeline

import "github.com/francesco-di-maggio/codecell/internal/sensor"

// Deadzone zeroes acceleration components whose magnitude sits strictly
// below the noise floor, so idle sensor noise alone can never cross the
// change threshold and cause a transmission. A component at exactly the
// floor passes through.
type Deadzone struct {
	floor float32
}

func NewDeadzone(floor float32) Deadzone {
	return Deadzone{floor: floor}
}

func (d Deadzone) Apply(v sensor.Vector3) sensor.Vector3 {
	v.X = d.clip(v.X)
	v.Y = d.clip(v.Y)
	v.Z = d.clip(v.Z)
	return v
}

func (d Deadzone) clip(v float32) float32 {
	if abs32(v) < d.floor {
		return 0
	}
	return v
}

package pipeline

import "github.com/francesco-di-maggio/codecell/internal/sensor"

// Sentinels marking voltage and runtime as not applicable, as opposed to
// unknown. They are defined values the receiver must special-case.
const (
	VoltageInvalid uint16  = 0xFFFF
	RuntimeInvalid float32 = -1.0
)

// Snapshot is the battery state as it goes out on the wire: the raw
// level (percent or gauge sentinel), the supply state, the cell voltage
// in millivolts and the estimated remaining runtime in the hh.mm
// encoding.
type Snapshot struct {
	Level   float32
	State   sensor.PowerState
	Voltage uint16
	Runtime float32
}

// Volts returns the cell voltage in volts, -1 when not applicable.
func (s Snapshot) Volts() float32 {
	if s.Voltage == VoltageInvalid {
		return -1
	}
	return float32(s.Voltage) / 1000
}

// Estimator derives the transmitted battery snapshot from a raw gauge
// reading and a constant current-draw model. The draw is a configured
// estimate, not a measurement.
type Estimator struct {
	capacityMAh float32
	drawMA      float32
}

func NewEstimator(capacityMAh, drawMA float32) Estimator {
	return Estimator{capacityMAh: capacityMAh, drawMA: drawMA}
}

// Estimate converts one gauge reading. Voltage and runtime are only
// meaningful while an actual cell is being measured, that is in the
// battery, low-battery and charged states with a non-zero level; in
// every other case both take their sentinel.
func (e Estimator) Estimate(raw sensor.BatterySample) Snapshot {
	snap := Snapshot{
		Level:   float32(raw.Level),
		State:   raw.State,
		Voltage: VoltageInvalid,
		Runtime: RuntimeInvalid,
	}
	switch raw.State {
	case sensor.PowerBattery, sensor.PowerLowBattery, sensor.PowerCharged:
	default:
		return snap
	}
	if raw.Level == 0 {
		return snap
	}
	snap.Voltage = raw.VoltageMV
	remaining := float32(raw.Level) / 100 * e.capacityMAh
	snap.Runtime = encodeRuntime(remaining / e.drawMA)
	return snap
}

// encodeRuntime packs decimal hours into the hh.mm wire format: integer
// part hours, fractional part minutes/100. 1h12m encodes as 1.12, not
// 1.2. Minutes never reach 100 so the encoding is unambiguous.
func encodeRuntime(hours float32) float32 {
	h := int(hours)
	m := int((hours - float32(h)) * 60)
	return float32(h) + float32(m)/100
}

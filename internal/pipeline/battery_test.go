package pipeline

import (
	"testing"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

func TestRuntimeEncoding(t *testing.T) {
	cases := []struct {
		name     string
		level    uint16
		capacity float32
		draw     float32
		want     float32
	}{
		// 150mAh at 150mA lasts exactly one hour
		{"full hour", 100, 150, 150, 1.00},
		// 112.5mAh at 140mA is 0.8036h = 0h48m, hh.mm encodes as 0.48
		{"fractional hour", 75, 150, 140, 0.48},
	}
	for _, c := range cases {
		e := NewEstimator(c.capacity, c.draw)
		got := e.Estimate(sensor.BatterySample{Level: c.level, State: sensor.PowerBattery, VoltageMV: 3800})
		if diff := got.Runtime - c.want; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("%s: runtime = %v, want %v", c.name, got.Runtime, c.want)
		}
	}
}

func TestEstimateValidStates(t *testing.T) {
	e := NewEstimator(500, 120)
	for _, state := range []sensor.PowerState{sensor.PowerBattery, sensor.PowerLowBattery, sensor.PowerCharged} {
		got := e.Estimate(sensor.BatterySample{Level: 80, State: state, VoltageMV: 3912})
		if got.Voltage != 3912 {
			t.Errorf("state %v: voltage = %v, want 3912", state, got.Voltage)
		}
		if got.Runtime == RuntimeInvalid || got.Runtime <= 0 {
			t.Errorf("state %v: runtime = %v, want a positive estimate", state, got.Runtime)
		}
		if got.Level != 80 {
			t.Errorf("state %v: level = %v, want 80", state, got.Level)
		}
	}
}

func TestSentinelInvariant(t *testing.T) {
	e := NewEstimator(500, 120)
	cases := []struct {
		name  string
		level uint16
		state sensor.PowerState
	}{
		{"usb", sensor.LevelUSB, sensor.PowerUSB},
		{"init", 0, sensor.PowerInit},
		{"charging", sensor.LevelCharging, sensor.PowerCharging},
		{"charging with percent", 64, sensor.PowerCharging},
		{"flat on battery", 0, sensor.PowerBattery},
		{"flat on low battery", 0, sensor.PowerLowBattery},
	}
	for _, c := range cases {
		// the raw voltage is deliberately plausible; the sentinel must
		// win regardless of what the driver reported
		got := e.Estimate(sensor.BatterySample{Level: c.level, State: c.state, VoltageMV: 3700})
		if got.Voltage != VoltageInvalid {
			t.Errorf("%s: voltage = %v, want sentinel", c.name, got.Voltage)
		}
		if got.Runtime != RuntimeInvalid {
			t.Errorf("%s: runtime = %v, want sentinel", c.name, got.Runtime)
		}
		if got.Level != float32(c.level) || got.State != c.state {
			t.Errorf("%s: level/state not passed through: %+v", c.name, got)
		}
	}
}

func TestSnapshotVolts(t *testing.T) {
	if got := (Snapshot{Voltage: 3912}).Volts(); got != 3.912 {
		t.Errorf("Volts() = %v, want 3.912", got)
	}
	if got := (Snapshot{Voltage: VoltageInvalid}).Volts(); got != -1 {
		t.Errorf("sentinel Volts() = %v, want -1", got)
	}
}

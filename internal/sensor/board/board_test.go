package board

import (
	"testing"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

func put16(p []byte, v int16) {
	p[0] = byte(v)
	p[1] = byte(uint16(v) >> 8)
}

func TestLE16(t *testing.T) {
	cases := []struct {
		b    [2]byte
		want int16
	}{
		{[2]byte{0x00, 0x00}, 0},
		{[2]byte{0x00, 0x40}, 16384},
		{[2]byte{0x00, 0xC0}, -16384},
		{[2]byte{0xFF, 0xFF}, -1},
		{[2]byte{0xFF, 0x7F}, 32767},
	}
	for _, c := range cases {
		if got := le16(c.b[:]); got != c.want {
			t.Errorf("le16(% X) = %d, want %d", c.b, got, c.want)
		}
	}
}

func TestDecodeBurst(t *testing.T) {
	buf := make([]byte, 14)
	put16(buf[0:], 16384)  // w = 1
	put16(buf[2:], 0)      // x
	put16(buf[4:], -16384) // y = -1
	put16(buf[6:], 8192)   // z = 0.5
	put16(buf[8:], 980)    // ax = 9.8
	put16(buf[10:], -50)   // ay = -0.5
	put16(buf[12:], 25)    // az = 0.25

	got := decodeBurst(buf)
	want := sensor.MotionSample{
		Quat: sensor.Quaternion{W: 1, X: 0, Y: -1, Z: 0.5},
		Acc:  sensor.Vector3{X: 9.8, Y: -0.5, Z: 0.25},
	}
	if got != want {
		t.Fatalf("decodeBurst = %+v, want %+v", got, want)
	}
}

func TestVCellToMV(t *testing.T) {
	cases := []struct {
		raw  uint16
		want uint16
	}{
		{0, 0},
		{53760, 4200},
		{47360, 3700},
		{0xFFFF, 5119},
	}
	for _, c := range cases {
		if got := vcellToMV(c.raw); got != c.want {
			t.Errorf("vcellToMV(%d) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestDeriveSample(t *testing.T) {
	cases := []struct {
		name  string
		mv    uint16
		soc   uint16
		crate int16
		usb   bool
		want  sensor.BatterySample
	}{
		{"discharging", 3900, 80, -30, false,
			sensor.BatterySample{Level: 80, State: sensor.PowerBattery, VoltageMV: 3900}},
		{"low boundary", 3600, 15, -10, false,
			sensor.BatterySample{Level: 15, State: sensor.PowerLowBattery, VoltageMV: 3600}},
		{"just above low", 3650, 16, -10, false,
			sensor.BatterySample{Level: 16, State: sensor.PowerBattery, VoltageMV: 3650}},
		{"gauge converging", 3700, 0, 0, false,
			sensor.BatterySample{Level: 0, State: sensor.PowerInit, VoltageMV: 3700}},
		{"charging", 4000, 60, 40, true,
			sensor.BatterySample{Level: sensor.LevelCharging, State: sensor.PowerCharging, VoltageMV: 4000}},
		{"charged", 4200, 97, 0, true,
			sensor.BatterySample{Level: 97, State: sensor.PowerCharged, VoltageMV: 4200}},
		{"full but still pushing current", 4200, 97, 5, true,
			sensor.BatterySample{Level: sensor.LevelCharging, State: sensor.PowerCharging, VoltageMV: 4200}},
		{"usb without a cell", 150, 0, 0, true,
			sensor.BatterySample{Level: sensor.LevelUSB, State: sensor.PowerUSB, VoltageMV: 150}},
		{"soc clamped to 100", 4200, 120, -1, false,
			sensor.BatterySample{Level: 100, State: sensor.PowerBattery, VoltageMV: 4200}},
	}
	for _, c := range cases {
		if got := deriveSample(c.mv, c.soc, c.crate, c.usb); got != c.want {
			t.Errorf("%s: deriveSample = %+v, want %+v", c.name, got, c.want)
		}
	}
}

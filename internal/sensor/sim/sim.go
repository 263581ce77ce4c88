package sim

import (
	"math"
	"math/rand"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

// Synthetic rig for bench work without hardware. Motion is a steady
// rotation sweep with a gentle acceleration wobble, the battery drains
// linearly and the buttons press themselves now and then. Everything is
// deterministic for a given seed.

const (
	sweepStepDeg = 1.5
	wobbleStep   = 0.05
	noiseAmp     = 0.02

	drainReadsPerPct = 200
	levelFloorPct    = 5
	lowBatteryPct    = 15

	pressEvery = 400
	pressHold  = 25
)

// sweep axis, unit length, tipped off the vertical
const axisX, axisY, axisZ = 0.0, 0.6, 0.8

type motion struct {
	step int
	rng  *rand.Rand
}

func (m *motion) Read() (sensor.MotionSample, error) {
	m.step++
	angle := float64(m.step) * sweepStepDeg * math.Pi / 180
	half := angle / 2
	s := math.Sin(half)
	q := sensor.Quaternion{
		W: float32(math.Cos(half)),
		X: float32(axisX * s),
		Y: float32(axisY * s),
		Z: float32(axisZ * s),
	}
	// canonicalise to a positive scalar part the way fusion cores do,
	// so the sweep flips hemisphere mid rotation
	if q.W < 0 {
		q = sensor.Quaternion{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}

	wob := float64(m.step) * wobbleStep
	acc := sensor.Vector3{
		X: float32(1.2*math.Sin(wob)) + m.noise(),
		Y: float32(1.2*math.Cos(0.7*wob)) + m.noise(),
		Z: m.noise(),
	}
	return sensor.MotionSample{Quat: q, Acc: acc}, nil
}

func (m *motion) noise() float32 {
	return float32((m.rng.Float64()*2 - 1) * noiseAmp)
}

func (m *motion) Close() error { return nil }

type battery struct {
	reads int
}

func (b *battery) Read() (sensor.BatterySample, error) {
	b.reads++
	level := 100 - b.reads/drainReadsPerPct
	if level < levelFloorPct {
		level = levelFloorPct
	}
	state := sensor.PowerBattery
	if level <= lowBatteryPct {
		state = sensor.PowerLowBattery
	}
	return sensor.BatterySample{
		Level: uint16(level),
		State: state,
		// 4.20 V full, sagging 7 mV per percent
		VoltageMV: uint16(3500 + level*7),
	}, nil
}

func (b *battery) Close() error { return nil }

type input struct {
	cycle int
}

func (in *input) ReadPin(idx int) (bool, error) {
	if idx == 0 {
		in.cycle++
	}
	phase := in.cycle % pressEvery
	pressed := phase >= pressEvery/2 && phase < pressEvery/2+pressHold &&
		(in.cycle/pressEvery)%2 == idx
	return !pressed, nil // lines idle high
}

func (in *input) Count() int { return 2 }

func (in *input) Close() error { return nil }

// NewSources returns the full synthetic rig: IMU, gauge and both
// buttons.
func NewSources(seed int64) sensor.Sources {
	return sensor.Sources{
		Motion:  &motion{rng: rand.New(rand.NewSource(seed))},
		Battery: &battery{},
		Input:   &input{},
	}
}

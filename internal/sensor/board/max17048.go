package board

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

// MAX17048 register map
const (
	maxVCell = 0x02 // 78.125 uV per LSB
	maxSOC   = 0x04 // 1/256 % per LSB
	maxCRate = 0x16 // 0.208 %/hr per LSB, signed
)

const (
	lowBatteryPct = 15
	chargedMinPct = 95
	// below this the gauge is not looking at a cell
	cellPresentMV = 2500
)

// max17048 reads the fuel gauge. The optional vbus pin senses USB
// power; without it the rig is assumed to run on battery.
type max17048 struct {
	dev  *i2c.Dev
	vbus gpio.PinIn
}

func newMAX17048(bus i2c.Bus, addr uint16, vbus gpio.PinIn) *max17048 {
	return &max17048{dev: &i2c.Dev{Addr: addr, Bus: bus}, vbus: vbus}
}

// registers are big-endian
func (g *max17048) readReg16(reg byte) (uint16, error) {
	var v [2]byte
	if err := g.dev.Tx([]byte{reg}, v[:]); err != nil {
		return 0, err
	}
	return uint16(v[0])<<8 | uint16(v[1]), nil
}

func (g *max17048) Read() (sensor.BatterySample, error) {
	vcell, err := g.readReg16(maxVCell)
	if err != nil {
		return sensor.BatterySample{}, err
	}
	socRaw, err := g.readReg16(maxSOC)
	if err != nil {
		return sensor.BatterySample{}, err
	}
	crateRaw, err := g.readReg16(maxCRate)
	if err != nil {
		return sensor.BatterySample{}, err
	}
	return deriveSample(vcellToMV(vcell), socRaw/256, int16(crateRaw), g.usbPresent()), nil
}

func (g *max17048) usbPresent() bool {
	if g.vbus == nil {
		return false
	}
	return g.vbus.Read() == gpio.High
}

// the gauge does not own the bus, the IMU does
func (g *max17048) Close() error { return nil }

// 78.125 uV per LSB is 5/64 mV
func vcellToMV(raw uint16) uint16 {
	return uint16(uint32(raw) * 5 / 64)
}

// deriveSample maps the gauge readings onto the node's power states.
// On USB the level carries the charging sentinels; discharging reports
// the plain percentage.
func deriveSample(mv, soc uint16, crate int16, usb bool) sensor.BatterySample {
	if soc > 100 {
		soc = 100
	}
	s := sensor.BatterySample{Level: soc, VoltageMV: mv}
	switch {
	case usb && mv < cellPresentMV:
		s.State = sensor.PowerUSB
		s.Level = sensor.LevelUSB
	case usb && soc >= chargedMinPct && crate <= 0:
		s.State = sensor.PowerCharged
	case usb:
		s.State = sensor.PowerCharging
		s.Level = sensor.LevelCharging
	case soc == 0:
		// gauge still converging after power-on
		s.State = sensor.PowerInit
	case soc <= lowBatteryPct:
		s.State = sensor.PowerLowBattery
	default:
		s.State = sensor.PowerBattery
	}
	return s
}

package board

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

// BNO055 register map, page 0
const (
	bnoChipID     = 0x00
	bnoPageID     = 0x07
	bnoQuatData   = 0x20 // 8 bytes w,x,y,z int16 LE, 1/16384 per unit
	bnoOprMode    = 0x3D
	bnoPwrMode    = 0x3E
	bnoSysTrigger = 0x3F

	bnoChipIDValue = 0xA0

	bnoModeConfig = 0x00
	bnoModeNDOF   = 0x0C

	bnoPwrNormal = 0x00
)

// bno055 drives the fusion IMU. It owns the shared I2C bus; closing it
// tears the bus down for the gauge as well.
type bno055 struct {
	dev *i2c.Dev
	bus i2c.BusCloser
	buf [14]byte
}

func newBNO055(bus i2c.BusCloser, addr uint16) (*bno055, error) {
	b := &bno055{dev: &i2c.Dev{Addr: addr, Bus: bus}, bus: bus}

	// the core takes a few hundred ms from power-on before it answers
	var id byte
	var err error
	for i := 0; i < 10; i++ {
		if id, err = b.readReg(bnoChipID); err == nil && id == bnoChipIDValue {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("imu chip id: %w", err)
	}
	if id != bnoChipIDValue {
		return nil, fmt.Errorf("unexpected imu chip id 0x%02X, want 0x%02X", id, bnoChipIDValue)
	}

	for _, w := range []struct{ reg, val byte }{
		{bnoOprMode, bnoModeConfig},
		{bnoPageID, 0x00},
		{bnoPwrMode, bnoPwrNormal},
		{bnoSysTrigger, 0x00},
		{bnoOprMode, bnoModeNDOF},
	} {
		if err := b.writeReg(w.reg, w.val); err != nil {
			return nil, fmt.Errorf("imu reg 0x%02X: %w", w.reg, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	return b, nil
}

func (b *bno055) readReg(reg byte) (byte, error) {
	var v [1]byte
	if err := b.dev.Tx([]byte{reg}, v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

func (b *bno055) writeReg(reg, val byte) error {
	return b.dev.Tx([]byte{reg, val}, nil)
}

// Read bursts quaternion and linear acceleration in one transaction,
// fourteen bytes from the quaternion base register.
func (b *bno055) Read() (sensor.MotionSample, error) {
	if err := b.dev.Tx([]byte{bnoQuatData}, b.buf[:]); err != nil {
		return sensor.MotionSample{}, err
	}
	return decodeBurst(b.buf[:]), nil
}

// decodeBurst converts the raw 14-byte register block: four int16 at
// 1/16384 per unit, then three int16 at 100 LSB per m/s^2.
func decodeBurst(p []byte) sensor.MotionSample {
	return sensor.MotionSample{
		Quat: sensor.Quaternion{
			W: float32(le16(p[0:])) / 16384,
			X: float32(le16(p[2:])) / 16384,
			Y: float32(le16(p[4:])) / 16384,
			Z: float32(le16(p[6:])) / 16384,
		},
		Acc: sensor.Vector3{
			X: float32(le16(p[8:])) / 100,
			Y: float32(le16(p[10:])) / 100,
			Z: float32(le16(p[12:])) / 100,
		},
	}
}

func (b *bno055) Close() error {
	// back to config mode so the core stops fusing, then release the bus
	_ = b.writeReg(bnoOprMode, bnoModeConfig)
	return b.bus.Close()
}

func le16(p []byte) int16 {
	return int16(uint16(p[0]) | uint16(p[1])<<8)
}

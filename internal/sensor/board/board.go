package board

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/francesco-di-maggio/codecell/internal/config"
	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

type buttons struct {
	pins []gpio.PinIn
}

// ReadPin returns the raw electrical level, high when released on the
// pulled-up lines.
func (in *buttons) ReadPin(idx int) (bool, error) {
	if idx < 0 || idx >= len(in.pins) {
		return false, fmt.Errorf("no button pin %d", idx)
	}
	return in.pins[idx].Read() == gpio.High, nil
}

func (in *buttons) Count() int { return len(in.pins) }

func (in *buttons) Close() error {
	var first error
	for _, p := range in.pins {
		if err := p.Halt(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// New brings up the I2C rig described by opt. The IMU owns the shared
// bus; closing the returned sources tears the whole rig down.
func New(opt config.BoardOpt) (sensor.Sources, error) {
	if _, err := host.Init(); err != nil {
		return sensor.Sources{}, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(opt.Bus)
	if err != nil {
		return sensor.Sources{}, fmt.Errorf("i2c open %q: %w", opt.Bus, err)
	}

	imu, err := newBNO055(bus, uint16(opt.IMUAddr))
	if err != nil {
		_ = bus.Close()
		return sensor.Sources{}, err
	}

	var vbus gpio.PinIn
	if opt.VBusPin != "" {
		if vbus = gpioreg.ByName(opt.VBusPin); vbus == nil {
			_ = imu.Close()
			return sensor.Sources{}, fmt.Errorf("vbus pin %q not found", opt.VBusPin)
		}
		if err := vbus.In(gpio.PullDown, gpio.NoEdge); err != nil {
			_ = imu.Close()
			return sensor.Sources{}, fmt.Errorf("vbus pin %q: %w", opt.VBusPin, err)
		}
	}

	src := sensor.Sources{
		Motion:  imu,
		Battery: newMAX17048(bus, uint16(opt.GaugeAddr), vbus),
	}

	if len(opt.ButtonPins) > 0 {
		in := &buttons{}
		for _, name := range opt.ButtonPins {
			pin := gpioreg.ByName(name)
			if pin == nil {
				_ = imu.Close()
				return sensor.Sources{}, fmt.Errorf("button pin %q not found", name)
			}
			if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
				_ = imu.Close()
				return sensor.Sources{}, fmt.Errorf("button pin %q: %w", name, err)
			}
			in.pins = append(in.pins, pin)
		}
		src.Input = in
	}

	return src, nil
}

// Probe initialises the host and names the I2C buses it can see.
func Probe() ([]string, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	refs := i2creg.All()
	if len(refs) == 0 {
		return nil, errors.New("no i2c buses found")
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names, nil
}

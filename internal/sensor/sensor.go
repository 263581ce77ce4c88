package sensor

// Quaternion is a unit rotation in w,x,y,z component order, the order the
// fusion core reports and the order it goes out on the wire.
type Quaternion struct {
	W float32
	X float32
	Y float32
	Z float32
}

// Vector3 is a linear acceleration sample in m/s^2, gravity already
// removed by the fusion core.
type Vector3 struct {
	X float32
	Y float32
	Z float32
}

// MotionSample is one fused reading from the IMU.
type MotionSample struct {
	Quat Quaternion
	Acc  Vector3
}

// PowerState is the coarse supply state reported by the gauge driver.
// The numeric values are part of the wire protocol and must not be
// reordered.
type PowerState uint8

const (
	PowerBattery PowerState = iota
	PowerUSB
	PowerInit
	PowerLowBattery
	PowerCharged
	PowerCharging
)

func (s PowerState) String() string {
	switch s {
	case PowerBattery:
		return "battery"
	case PowerUSB:
		return "usb"
	case PowerInit:
		return "init"
	case PowerLowBattery:
		return "low-battery"
	case PowerCharged:
		return "charged"
	case PowerCharging:
		return "charging"
	default:
		return "unknown"
	}
}

// Gauge level sentinels, reported in place of a percentage when the cell
// is not discharging.
const (
	LevelCharging uint16 = 101
	LevelUSB      uint16 = 102
)

// BatterySample is one raw reading from the fuel gauge driver. VoltageMV
// carries 0xFFFF when the driver has no usable cell voltage.
type BatterySample struct {
	Level     uint16
	State     PowerState
	VoltageMV uint16
}

// MotionSource is the narrow read interface over the IMU driver. Read
// returns the freshest fused sample; implementations may block briefly on
// the bus but must not buffer stale frames.
type MotionSource interface {
	Read() (MotionSample, error)
	Close() error
}

// BatterySource is the narrow read interface over the fuel gauge driver.
type BatterySource interface {
	Read() (BatterySample, error)
	Close() error
}

// InputSource reads the digital input pins. ReadPin returns the raw
// electrical level; the pins are wired active-low, inversion happens in
// the sampling pipeline, not here.
type InputSource interface {
	ReadPin(idx int) (bool, error)
	Count() int
	Close() error
}

// Sources bundles the drivers a backend provides. A nil member means the
// rig has no such device; the corresponding streams stay silent.
type Sources struct {
	Motion  MotionSource
	Battery BatterySource
	Input   InputSource
}

// Close closes every present source. The first error wins, the rest are
// still closed.
func (s Sources) Close() error {
	var first error
	if s.Motion != nil {
		if err := s.Motion.Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.Battery != nil {
		if err := s.Battery.Close(); err != nil && first == nil {
			first = err
		}
	}
	if s.Input != nil {
		if err := s.Input.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

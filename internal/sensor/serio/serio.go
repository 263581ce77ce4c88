package serio

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"github.com/francesco-di-maggio/codecell/internal/config"
	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

const MaxReadNum = 4096
const BufferSize = 4096
const DefaultBaudRate = 115200

// imu cannot be accessed by two goroutines at the same time
type imu struct {
	opt  config.SerialOpt
	port *serial.Port
	dec  decoder
	buf  [BufferSize]byte
}

// Open opens the serial port
func (s *imu) Open() error {
	if s.port != nil {
		return nil
	}
	c := &serial.Config{
		Name:        s.opt.Name,
		Baud:        s.opt.Baud,
		ReadTimeout: time.Second * 5,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		log.Warnln(err)
		return err
	}
	s.port = port
	return s.port.Flush()
}

// Close closes the serial port
func (s *imu) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	if err != nil {
		return err
	}
	s.port = nil
	return nil
}

// Reset resets the serial port cache
func (s *imu) Reset() error {
	return s.port.Flush()
}

// Read drains the pending serial bytes and returns the newest fused
// sample they contained. Frames superseded within the same chunk are
// dropped, the node only ever wants the freshest attitude.
func (s *imu) Read() (sensor.MotionSample, error) {
	if s.port == nil {
		return sensor.MotionSample{}, errors.New("port not open")
	}
	count := 0
	for count < MaxReadNum {
		n, err := s.port.Read(s.buf[:])
		if err != nil {
			return sensor.MotionSample{}, err
		}
		if n == 0 {
			return sensor.MotionSample{}, errors.New("port cannot be read")
		}
		count += n
		frames := 0
		for i := 0; i < n; i++ {
			if s.dec.feed(s.buf[i]) == 1 {
				frames++
			}
		}
		if frames > 0 {
			return s.dec.sample, nil
		}
	}
	return sensor.MotionSample{}, fmt.Errorf("no frame in %d bytes of serial input", MaxReadNum)
}

// New opens the configured serial port and returns it as a motion
// source.
func New(opt config.SerialOpt) (sensor.MotionSource, error) {
	s := &imu{opt: opt}
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

func listPorts() ([]string, error) {
	var ports []string
	switch runtime.GOOS {
	case "windows":
		for i := 1; i <= 256; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
	case "linux":
		// On Linux, serial ports are usually named /dev/ttyS* or /dev/ttyUSB*
		files, err := os.ReadDir("/dev")
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if strings.Contains(file.Name(), "tty") && strings.Contains(file.Name(), "USB") {
				ports = append(ports, fmt.Sprintf("/dev/%s", file.Name()))
			}
		}
	case "darwin":
		// On MacOS, serial ports are usually named /dev/tty.*
		files, err := os.ReadDir("/dev")
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			name := file.Name()
			if len(name) > 4 && name[:4] == "tty." {
				ports = append(ports, "/dev/"+name)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return ports, nil
}

func testPort(portName string) bool {
	c := &serial.Config{Name: portName, Baud: DefaultBaudRate, ReadTimeout: time.Second * 5}
	s, err := serial.OpenPort(c)
	if err != nil {
		return false
	}
	fmt.Print(".")
	time.Sleep(time.Millisecond * 100)

	defer func(s *serial.Port) {
		_ = s.Close()
	}(s)

	buffer := make([]byte, 4096)
	n, _ := s.Read(buffer)
	return n > 0
}

// Probe walks the platform's serial ports and returns the ones that are
// producing bytes.
func Probe() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, err
	}

	var live []string
	for _, portName := range ports {
		if testPort(portName) {
			live = append(live, portName)
		}
	}

	if len(live) == 0 {
		return nil, errors.New("no live serial ports found")
	}
	return live, nil
}

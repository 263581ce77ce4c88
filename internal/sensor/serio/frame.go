package serio

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

const (
	chSync1   = 0x5A // CHAOHE message sync code 1
	chSync2   = 0xA5 // CHAOHE message sync code 2
	chHdrSize = 0x06 // CHAOHE protocol header size

	maxRawLen = 512 // max raw frame long
)

// data items
const (
	itemID       = 0x90
	itemAccRaw   = 0xA0
	itemGyrRaw   = 0xB0
	itemMagRaw   = 0xC0
	itemEuler    = 0xD0
	itemQuat     = 0xD1
	itemPressure = 0xF0
	itemIMUSol   = 0x91
)

// standard gravity, converts the module's g readings to m/s^2
const gravity = 9.80665

// decoder accumulates one CHAOHE frame at a time. sample keeps the last
// decoded values so a frame carrying only one item leaves the rest in
// place.
type decoder struct {
	nByte  int
	len    int
	buf    [maxRawLen]uint8
	sample sensor.MotionSample
}

// feed consumes one byte of serial input. It returns 1 when a frame
// completed and decoded, -1 on a framing or checksum error, 0 otherwise.
func (d *decoder) feed(data uint8) int {
	if d.nByte == 0 {
		if !syncCh(&d.buf, data) {
			return 0
		}
		d.nByte = 2
		return 0
	}

	d.buf[d.nByte] = data
	d.nByte++

	if d.nByte == chHdrSize {
		if d.len = int(U2(d.buf[2:])); d.len > (maxRawLen - chHdrSize) {
			d.nByte = 0
			return -1
		}
	}

	if d.nByte < (d.len + chHdrSize) {
		return 0
	}

	d.nByte = 0
	return d.decode()
}

func syncCh(buf *[maxRawLen]uint8, data uint8) bool {
	buf[0] = buf[1]
	buf[1] = data
	return buf[0] == chSync1 && buf[1] == chSync2
}

func (d *decoder) decode() int {
	var crc uint16 = 0

	crc16Update(&crc, d.buf[:4])
	crc16Update(&crc, d.buf[6:d.len+chHdrSize])

	if crc != U2(d.buf[4:6]) {
		log.Debugf("ch checksum error: frame:0x%X calculate:0x%X, len:%d\n", U2(d.buf[4:6]), crc, d.len)
		return -1
	}

	return d.parse()
}

// parse walks the data items of a checked frame. Items the node has no
// use for are skipped at their wire width so the walk stays aligned.
func (d *decoder) parse() int {
	ofs := 0
	p := d.buf[chHdrSize:]

	for ofs < d.len {
		switch p[ofs] {
		case itemID:
			ofs += 2
		case itemAccRaw:
			d.sample.Acc.X = float32(I2(p[ofs+1:])) / 1000 * gravity
			d.sample.Acc.Y = float32(I2(p[ofs+3:])) / 1000 * gravity
			d.sample.Acc.Z = float32(I2(p[ofs+5:])) / 1000 * gravity
			ofs += 7
		case itemGyrRaw:
			ofs += 7
		case itemMagRaw:
			ofs += 7
		case itemEuler:
			ofs += 7
		case itemQuat:
			d.sample.Quat.W = R4(p[ofs+1:])
			d.sample.Quat.X = R4(p[ofs+5:])
			d.sample.Quat.Y = R4(p[ofs+9:])
			d.sample.Quat.Z = R4(p[ofs+13:])
			ofs += 17
		case itemPressure:
			ofs += 5
		case itemIMUSol:
			d.sample.Acc.X = R4(p[ofs+12:]) * gravity
			d.sample.Acc.Y = R4(p[ofs+16:]) * gravity
			d.sample.Acc.Z = R4(p[ofs+20:]) * gravity
			d.sample.Quat.W = R4(p[ofs+60:])
			d.sample.Quat.X = R4(p[ofs+64:])
			d.sample.Quat.Y = R4(p[ofs+68:])
			d.sample.Quat.Z = R4(p[ofs+72:])
			ofs += 76
		default:
			ofs++
		}
	}

	return 1
}

func crc16Update(currentCRC *uint16, src []uint8) {
	crc := *currentCRC
	l := len(src)

	for j := 0; j < l; j++ {
		b := src[j]
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			temp := crc << 1
			if (crc & 0x8000) != 0 {
				temp ^= 0x1021
			}
			crc = temp
		}
	}
	*currentCRC = crc
}

func U2(p []uint8) uint16 {
	return (uint16(p[1]) << 8) + uint16(p[0])
}

func U4(p []uint8) uint32 {
	return (uint32(p[3]) << 24) + (uint32(p[2]) << 16) + (uint32(p[1]) << 8) + uint32(p[0])
}

func R4(p []uint8) float32 {
	return math.Float32frombits(U4(p))
}

func I2(p []uint8) int16 {
	return (int16(p[1]) << 8) + int16(p[0])
}

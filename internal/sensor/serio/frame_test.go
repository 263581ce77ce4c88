package serio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

func frame(payload []byte) []byte {
	f := make([]byte, chHdrSize+len(payload))
	f[0] = chSync1
	f[1] = chSync2
	f[2] = byte(len(payload))
	f[3] = byte(len(payload) >> 8)
	copy(f[chHdrSize:], payload)
	var crc uint16
	crc16Update(&crc, f[:4])
	crc16Update(&crc, f[chHdrSize:])
	f[4] = byte(crc)
	f[5] = byte(crc >> 8)
	return f
}

func f32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func i16(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

func quatItem(w, x, y, z float32) []byte {
	p := []byte{itemQuat}
	for _, v := range []float32{w, x, y, z} {
		p = append(p, f32(v)...)
	}
	return p
}

func accRawItem(x, y, z int16) []byte {
	p := []byte{itemAccRaw}
	for _, v := range []int16{x, y, z} {
		p = append(p, i16(v)...)
	}
	return p
}

// feeds every byte and returns how many frames completed
func feedAll(d *decoder, b []byte) int {
	frames := 0
	for _, c := range b {
		if d.feed(c) == 1 {
			frames++
		}
	}
	return frames
}

func TestQuatAndAccFrame(t *testing.T) {
	payload := append(quatItem(0.7071, 0, 0.7071, 0), accRawItem(1000, -500, 250)...)
	d := &decoder{}
	if n := feedAll(d, frame(payload)); n != 1 {
		t.Fatalf("frames = %d, want 1", n)
	}

	want := sensor.MotionSample{
		Quat: sensor.Quaternion{W: 0.7071, Y: 0.7071},
		Acc: sensor.Vector3{
			X: 1.0 * gravity,
			Y: -0.5 * gravity,
			Z: 0.25 * gravity,
		},
	}
	if d.sample != want {
		t.Fatalf("sample = %+v, want %+v", d.sample, want)
	}
}

func TestIMUSolFrame(t *testing.T) {
	p := make([]byte, 76)
	p[0] = itemIMUSol
	copy(p[12:], f32(0.25))
	copy(p[16:], f32(-0.5))
	copy(p[20:], f32(1.0))
	copy(p[60:], f32(0.5))
	copy(p[64:], f32(0.5))
	copy(p[68:], f32(-0.5))
	copy(p[72:], f32(0.5))

	d := &decoder{}
	if n := feedAll(d, frame(p)); n != 1 {
		t.Fatalf("frames = %d, want 1", n)
	}
	want := sensor.MotionSample{
		Quat: sensor.Quaternion{W: 0.5, X: 0.5, Y: -0.5, Z: 0.5},
		Acc:  sensor.Vector3{X: 0.25 * gravity, Y: -0.5 * gravity, Z: 1.0 * gravity},
	}
	if d.sample != want {
		t.Fatalf("sample = %+v, want %+v", d.sample, want)
	}
}

func TestChecksumRejected(t *testing.T) {
	good := frame(quatItem(1, 0, 0, 0))
	d := &decoder{}
	if n := feedAll(d, good); n != 1 {
		t.Fatalf("frames = %d, want 1", n)
	}

	bad := frame(quatItem(0, 1, 0, 0))
	bad[len(bad)-1] ^= 0xFF
	if n := feedAll(d, bad); n != 0 {
		t.Fatalf("corrupt frame decoded, frames = %d", n)
	}
	if d.sample.Quat.W != 1 {
		t.Fatalf("corrupt frame overwrote the sample: %+v", d.sample.Quat)
	}
}

func TestResyncAfterGarbage(t *testing.T) {
	stream := append([]byte{0x00, 0xFF, chSync1, 0x13, 0x37}, frame(quatItem(1, 0, 0, 0))...)
	d := &decoder{}
	if n := feedAll(d, stream); n != 1 {
		t.Fatalf("frames = %d, want 1", n)
	}
	if d.sample.Quat.W != 1 {
		t.Fatalf("sample = %+v", d.sample)
	}
}

func TestSkipsUnknownItemsInOrder(t *testing.T) {
	// euler and gyro items ride ahead of the quat in the same frame
	payload := []byte{itemEuler}
	payload = append(payload, make([]byte, 6)...)
	payload = append(payload, itemGyrRaw)
	payload = append(payload, make([]byte, 6)...)
	payload = append(payload, quatItem(0, 0, 0, 1)...)

	d := &decoder{}
	if n := feedAll(d, frame(payload)); n != 1 {
		t.Fatalf("frames = %d, want 1", n)
	}
	if d.sample.Quat.Z != 1 {
		t.Fatalf("quat lost behind skipped items: %+v", d.sample.Quat)
	}
}

func TestOversizeLengthResets(t *testing.T) {
	d := &decoder{}
	bogus := []byte{chSync1, chSync2, 0xFF, 0xFF, 0x00, 0x00}
	if n := feedAll(d, bogus); n != 0 {
		t.Fatalf("oversize header produced a frame")
	}
	// decoder must resync on the next valid frame
	if n := feedAll(d, frame(quatItem(1, 0, 0, 0))); n != 1 {
		t.Fatal("decoder stuck after oversize header")
	}
}

func TestPartialItemsKeepLastValues(t *testing.T) {
	d := &decoder{}
	feedAll(d, frame(append(quatItem(1, 0, 0, 0), accRawItem(250, 0, 0)...)))
	// a quat-only frame must leave the acceleration in place
	feedAll(d, frame(quatItem(0, 1, 0, 0)))
	if d.sample.Quat.X != 1 {
		t.Fatalf("quat not updated: %+v", d.sample.Quat)
	}
	if d.sample.Acc.X != 0.25*gravity {
		t.Fatalf("acc lost on quat-only frame: %+v", d.sample.Acc)
	}
}

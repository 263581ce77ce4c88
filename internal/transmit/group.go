package transmit

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"

	"github.com/francesco-di-maggio/codecell/internal/pipeline"
	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

// Stream name segments of the wire protocol. A full address is
// <base>/<device index>/<stream>.
const (
	StreamQuat    = "quat"
	StreamAccel   = "accel"
	StreamBattery = "battery"
	StreamPower   = "power"
	StreamVoltage = "voltage"
	StreamRuntime = "runtime"
	StreamButton  = "button"
	StreamPing    = "ping"
)

// Address renders the full message address for one stream of one device.
func Address(base string, index int, stream string) string {
	return fmt.Sprintf("%s/%d/%s", strings.TrimRight(base, "/"), index, stream)
}

// Group collects the individually-addressed messages of one scheduler
// firing. The whole group leaves as a single bundled datagram.
type Group struct {
	base  string
	index int
	msgs  []*osc.Message
}

var groupPool = sync.Pool{
	New: func() interface{} {
		return &Group{}
	},
}

// NewGroup returns an empty unpooled group with the given addressing.
func NewGroup(base string, index int) *Group {
	g := &Group{}
	g.reset(base, index)
	return g
}

func (g *Group) reset(base string, index int) {
	g.base = base
	g.index = index
	g.msgs = g.msgs[:0]
}

func (g *Group) append(stream string, args ...interface{}) {
	msg := osc.NewMessage(Address(g.base, g.index, stream))
	msg.Append(args...)
	g.msgs = append(g.msgs, msg)
}

func (g *Group) Quat(q sensor.Quaternion) {
	g.append(StreamQuat, q.W, q.X, q.Y, q.Z)
}

func (g *Group) Accel(v sensor.Vector3) {
	g.append(StreamAccel, v.X, v.Y, v.Z)
}

// Battery appends the full battery group. The four messages always
// travel together so the receiver never sees a level without its
// matching state, voltage and runtime.
func (g *Group) Battery(s pipeline.Snapshot) {
	g.append(StreamBattery, s.Level)
	g.append(StreamPower, float32(s.State))
	g.append(StreamVoltage, s.Volts())
	g.append(StreamRuntime, s.Runtime)
}

// Button appends one input edge. Buttons are numbered from 1 on the
// wire.
func (g *Group) Button(n int, pressed bool) {
	v := float32(0)
	if pressed {
		v = 1
	}
	g.append(fmt.Sprintf("%s/%d", StreamButton, n), v)
}

// Ping appends the heartbeat, a constant 1.
func (g *Group) Ping() {
	g.append(StreamPing, float32(1))
}

func (g *Group) Len() int {
	return len(g.msgs)
}

// Messages exposes the pending messages, freshest ordering preserved.
func (g *Group) Messages() []*osc.Message {
	return g.msgs
}

package transmit

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/francesco-di-maggio/codecell/internal/config"
	"github.com/francesco-di-maggio/codecell/internal/pipeline"
	"github.com/francesco-di-maggio/codecell/internal/sensor"
)

func testClient(host string, port int) *Client {
	return NewClient(
		&config.TargetOpt{Host: host, Port: port, JoinTimeoutS: 0, JoinIntervalS: 1},
		&config.DeviceOpt{Index: 0, Base: "/codecell"},
	)
}

func TestAddress(t *testing.T) {
	cases := []struct {
		base   string
		index  int
		stream string
		want   string
	}{
		{"/codecell", 0, StreamQuat, "/codecell/0/quat"},
		{"/codecell/", 2, StreamBattery, "/codecell/2/battery"},
		{"/rig/left", 1, StreamPing, "/rig/left/1/ping"},
	}
	for _, c := range cases {
		if got := Address(c.base, c.index, c.stream); got != c.want {
			t.Errorf("Address(%q,%d,%q) = %q, want %q", c.base, c.index, c.stream, got, c.want)
		}
	}
}

func TestGroupPayload(t *testing.T) {
	c := NewClient(
		&config.TargetOpt{Host: "127.0.0.1", Port: 8000},
		&config.DeviceOpt{Index: 3, Base: "/codecell"},
	)
	g := c.NewGroup()
	g.Quat(sensor.Quaternion{W: 1, X: 0.1, Y: 0.2, Z: 0.3})
	g.Accel(sensor.Vector3{X: 0, Y: 0, Z: 9.8})
	g.Battery(pipeline.Snapshot{Level: 87, State: sensor.PowerBattery, Voltage: 3912, Runtime: 3.25})
	g.Button(2, true)
	g.Ping()

	want := []struct {
		addr string
		args []float32
	}{
		{"/codecell/3/quat", []float32{1, 0.1, 0.2, 0.3}},
		{"/codecell/3/accel", []float32{0, 0, 9.8}},
		{"/codecell/3/battery", []float32{87}},
		{"/codecell/3/power", []float32{0}},
		{"/codecell/3/voltage", []float32{3.912}},
		{"/codecell/3/runtime", []float32{3.25}},
		{"/codecell/3/button/2", []float32{1}},
		{"/codecell/3/ping", []float32{1}},
	}
	msgs := g.Messages()
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Address != w.addr {
			t.Errorf("message %d address = %q, want %q", i, msgs[i].Address, w.addr)
		}
		if len(msgs[i].Arguments) != len(w.args) {
			t.Fatalf("message %d has %d args, want %d", i, len(msgs[i].Arguments), len(w.args))
		}
		for j, a := range w.args {
			if got := msgs[i].Arguments[j].(float32); got != a {
				t.Errorf("message %d arg %d = %v, want %v", i, j, got, a)
			}
		}
	}
}

func TestConnectReportsFailure(t *testing.T) {
	c := testClient("127.0.0.1", 99999)
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected a join failure for an unresolvable target")
	}
}

func TestConnectLoopback(t *testing.T) {
	c := testClient("127.0.0.1", 18999)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("loopback join failed: %v", err)
	}
}

func TestSendBundlesOverUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	c := testClient("127.0.0.1", port)
	g := c.NewGroup()
	g.Quat(sensor.Quaternion{W: 1})
	if err := c.Send(g); err != nil {
		t.Fatal(err)
	}

	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf[:n], []byte("#bundle")) {
		t.Fatalf("datagram is not an OSC bundle: %q", buf[:min(n, 16)])
	}
	if !bytes.Contains(buf[:n], []byte("/codecell/0/quat")) {
		t.Fatal("bundle does not carry the quat message")
	}
}

func TestGroupPoolReuse(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()
	c := testClient("127.0.0.1", pc.LocalAddr().(*net.UDPAddr).Port)

	g := c.NewGroup()
	g.Ping()
	if err := c.Send(g); err != nil {
		t.Fatal(err)
	}
	g2 := c.NewGroup()
	if g2.Len() != 0 {
		t.Fatalf("reused group not empty: %d messages", g2.Len())
	}
}

package transmit

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hypebeast/go-osc/osc"
	log "github.com/sirupsen/logrus"

	"github.com/francesco-di-maggio/codecell/internal/config"
)

// Client sends bundled message groups to one fixed receiver over UDP.
// The datagram path is fire-and-forget; Connect only establishes that
// the target is resolvable and routable before streaming starts.
type Client struct {
	host     string
	port     int
	base     string
	index    int
	timeout  time.Duration
	interval time.Duration
	osc      *osc.Client
}

func NewClient(target *config.TargetOpt, device *config.DeviceOpt) *Client {
	return &Client{
		host:     target.Host,
		port:     target.Port,
		base:     device.Base,
		index:    device.Index,
		timeout:  time.Duration(target.JoinTimeoutS) * time.Second,
		interval: time.Duration(target.JoinIntervalS) * time.Second,
		osc:      osc.NewClient(target.Host, target.Port),
	}
}

// Connect probes the target with bounded retries until the join timeout
// and reports the outcome. The caller decides what a failure means;
// Connect itself never halts.
func (c *Client) Connect(ctx context.Context) error {
	deadline := time.Now().Add(c.timeout)
	attempt := 1
	for {
		err := c.probe()
		if err == nil {
			log.Infof("joined %s:%d after %d attempt(s)", c.host, c.port, attempt)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no route to %s:%d within %v: %w", c.host, c.port, c.timeout, err)
		}
		log.Infof("join attempt %d to %s:%d failed: %v", attempt, c.host, c.port, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.interval):
		}
		attempt++
	}
}

func (c *Client) probe() error {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(c.host, strconv.Itoa(c.port)))
	if err != nil {
		return err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// NewGroup hands out an empty group bound to this client's addressing.
// Groups are pooled; every group must come back through Send.
func (c *Client) NewGroup() *Group {
	g := groupPool.Get().(*Group)
	g.reset(c.base, c.index)
	return g
}

// Send bundles the group's messages and fires the datagram.
func (c *Client) Send(g *Group) error {
	b := osc.NewBundle(time.Now())
	for _, m := range g.msgs {
		_ = b.Append(m)
	}
	err := c.osc.Send(b)
	groupPool.Put(g)
	return err
}

func (c *Client) Target() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

package node

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/francesco-di-maggio/codecell/internal/config"
	"github.com/francesco-di-maggio/codecell/internal/pipeline"
	"github.com/francesco-di-maggio/codecell/internal/sensor"
	"github.com/francesco-di-maggio/codecell/internal/transmit"
)

// Transmitter is the slice of the transmit client the node drives.
type Transmitter interface {
	NewGroup() *transmit.Group
	Send(*transmit.Group) error
}

// pending holds the per-stream values flagged for the next scheduler
// firing. A flag is set by the acquisition pass and consumed exactly
// once by the transmission pass.
type pending struct {
	quat       sensor.Quaternion
	quatSet    bool
	accel      sensor.Vector3
	accelSet   bool
	battery    pipeline.Snapshot
	batterySet bool
	buttons    []bool
	buttonsSet []bool
	ping       bool
}

func (p *pending) any() bool {
	if p.quatSet || p.accelSet || p.batterySet || p.ping {
		return true
	}
	for _, set := range p.buttonsSet {
		if set {
			return true
		}
	}
	return false
}

// Node runs the sampling pipeline of one sensor rig: a fixed-rate
// acquisition pass feeding per-stream change filters, and an
// independent fixed-rate transmission pass that coalesces whatever
// changed into one bundled send. Everything happens on the caller's
// goroutine; the two gates are non-blocking rate limiters, so neither
// side's latency shifts the other's schedule.
type Node struct {
	opt *config.NodeOpt
	src sensor.Sources
	tx  Transmitter

	acqGate  *pipeline.RateGate
	txGate   *pipeline.RateGate
	pingGate *pipeline.RateGate
	coupled  bool

	corrector pipeline.Continuity
	deadzone  pipeline.Deadzone
	estimator pipeline.Estimator
	quatF     *pipeline.QuatFilter
	accelF    *pipeline.AccelFilter
	batteryF  *pipeline.BatteryFilter
	buttonF   []*pipeline.ButtonFilter

	quatOn    bool
	accelOn   bool
	batteryOn bool
	buttonsOn bool
	pingOn    bool

	pend pending

	acquired uint64
	sent     uint64
}

// New assembles a node from its options, the backend's sources and a
// transmit client. A stream is active only when it is enabled in the
// options and the backend actually provides its device.
func New(opt *config.NodeOpt, src sensor.Sources, tx Transmitter) *Node {
	n := &Node{
		opt:       opt,
		src:       src,
		tx:        tx,
		acqGate:   pipeline.NewRateGate(opt.Rates.SensorHz),
		coupled:   opt.Rates.Coupled,
		deadzone:  pipeline.NewDeadzone(opt.Filters.AccelDeadzone),
		estimator: pipeline.NewEstimator(opt.Battery.CapacityMAh, opt.Battery.DrawMA),
		quatF:     pipeline.NewQuatFilter(opt.Filters.QuatThreshold),
		accelF:    pipeline.NewAccelFilter(opt.Filters.AccelThreshold),
		batteryF:  pipeline.NewBatteryFilter(),
	}
	if !n.coupled {
		n.txGate = pipeline.NewRateGate(opt.Rates.TransmitHz)
	}

	n.quatOn = opt.Streams.Orientation && src.Motion != nil
	n.accelOn = opt.Streams.Acceleration && src.Motion != nil
	n.batteryOn = opt.Streams.Battery && src.Battery != nil
	n.buttonsOn = opt.Streams.Buttons && src.Input != nil && src.Input.Count() > 0
	n.pingOn = opt.Streams.Ping && opt.Rates.PingIntervalS > 0
	if n.pingOn {
		n.pingGate = pipeline.NewIntervalGate(time.Duration(opt.Rates.PingIntervalS) * time.Second)
	}
	if n.buttonsOn {
		count := src.Input.Count()
		n.buttonF = make([]*pipeline.ButtonFilter, count)
		for i := range n.buttonF {
			n.buttonF[i] = pipeline.NewButtonFilter()
		}
		n.pend.buttons = make([]bool, count)
		n.pend.buttonsSet = make([]bool, count)
	}
	return n
}

// Step runs one cooperative pass against the supplied wall-clock
// reading: the acquisition pass if the sensor gate is due, then the
// transmission pass if the scheduler is due. Acquisition runs first so
// a group never carries a flag from a stale read.
func (n *Node) Step(now time.Time) {
	due := n.acqGate.Due(now)
	if due {
		n.acquire()
	}
	if n.pingOn && n.pingGate.Due(now) {
		n.pend.ping = true
	}
	if n.coupled {
		if due {
			n.transmitPass()
		}
		return
	}
	if n.txGate.Due(now) {
		n.transmitPass()
	}
}

func (n *Node) acquire() {
	n.acquired++
	if n.quatOn || n.accelOn {
		s, err := n.src.Motion.Read()
		if err != nil {
			log.Debugf("motion read skipped: %v", err)
		} else {
			if n.quatOn {
				q := n.corrector.Correct(s.Quat)
				if n.quatF.Changed(q) {
					n.pend.quat = q
					n.pend.quatSet = true
				}
			}
			if n.accelOn {
				a := n.deadzone.Apply(s.Acc)
				if n.accelF.Changed(a) {
					n.pend.accel = a
					n.pend.accelSet = true
				}
			}
		}
	}
	if n.batteryOn {
		raw, err := n.src.Battery.Read()
		if err != nil {
			log.Debugf("gauge read skipped: %v", err)
		} else {
			snap := n.estimator.Estimate(raw)
			if n.batteryF.Changed(snap.Level, snap.State) {
				n.pend.battery = snap
				n.pend.batterySet = true
			}
		}
	}
	if n.buttonsOn {
		for i := range n.buttonF {
			raw, err := n.src.Input.ReadPin(i)
			if err != nil {
				log.Debugf("input %d read skipped: %v", i, err)
				continue
			}
			pressed := !raw // pins are wired active-low
			if n.buttonF[i].Changed(pressed) {
				n.pend.buttons[i] = pressed
				n.pend.buttonsSet[i] = true
			}
		}
	}
}

func (n *Node) transmitPass() {
	if !n.pend.any() {
		return
	}
	g := n.tx.NewGroup()
	if n.pend.quatSet {
		g.Quat(n.pend.quat)
		n.pend.quatSet = false
	}
	if n.pend.accelSet {
		g.Accel(n.pend.accel)
		n.pend.accelSet = false
	}
	if n.pend.batterySet {
		g.Battery(n.pend.battery)
		n.pend.batterySet = false
	}
	for i := range n.pend.buttonsSet {
		if n.pend.buttonsSet[i] {
			g.Button(i+1, n.pend.buttons[i])
			n.pend.buttonsSet[i] = false
		}
	}
	if n.pend.ping {
		g.Ping()
		n.pend.ping = false
	}
	if err := n.tx.Send(g); err != nil {
		// dropped datagrams are not retried; the next change re-arms
		log.Warnln("send failed:", err)
		return
	}
	n.sent++
}

// Run drives the cooperative loop until the context is cancelled. The
// loop sleeps only up to the earliest gate deadline, never on the
// transport.
func (n *Node) Run(ctx context.Context) error {
	diagLast := time.Now()
	var diagAcq, diagSent uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n.Step(time.Now())

		if d := time.Since(diagLast).Seconds(); d >= 10 {
			log.Debugf("acquire fps: %3.1f, send fps: %3.1f",
				float64(n.acquired-diagAcq)/d, float64(n.sent-diagSent)/d)
			diagAcq, diagSent = n.acquired, n.sent
			diagLast = time.Now()
		}

		if idle := n.idle(time.Now()); idle > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idle):
			}
		}
	}
}

func (n *Node) idle(now time.Time) time.Duration {
	d := n.acqGate.Remaining(now)
	if !n.coupled {
		if t := n.txGate.Remaining(now); t < d {
			d = t
		}
	}
	if n.pingOn {
		if t := n.pingGate.Remaining(now); t < d {
			d = t
		}
	}
	return d
}

// Acquired returns the number of acquisition passes so far.
func (n *Node) Acquired() uint64 {
	return n.acquired
}

// Sent returns the number of successfully transmitted groups.
func (n *Node) Sent() uint64 {
	return n.sent
}

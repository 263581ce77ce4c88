package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/francesco-di-maggio/codecell/internal/config"
	"github.com/francesco-di-maggio/codecell/internal/node"
	"github.com/francesco-di-maggio/codecell/internal/sensor"
	"github.com/francesco-di-maggio/codecell/internal/sensor/board"
	"github.com/francesco-di-maggio/codecell/internal/sensor/serio"
	"github.com/francesco-di-maggio/codecell/internal/sensor/sim"
	"github.com/francesco-di-maggio/codecell/internal/transmit"
	"github.com/francesco-di-maggio/codecell/pkg/version"
)

const defaultSimSeed = 1

type mainApp struct {
	name string
	cmd  *cobra.Command
	args []string
	opt  *config.NodeOpt
}

// buildSources opens the drivers for the configured backend. The serial
// rig carries only the IMU, the other backends provide the full set.
func buildSources(opt *config.SensorOpt) (sensor.Sources, error) {
	switch opt.Backend {
	case "sim":
		return sim.NewSources(defaultSimSeed), nil
	case "serial":
		motion, err := serio.New(opt.Serial)
		if err != nil {
			return sensor.Sources{}, err
		}
		return sensor.Sources{Motion: motion}, nil
	case "board":
		return board.New(opt.Board)
	default:
		return sensor.Sources{}, fmt.Errorf("unknown sensor.backend %q", opt.Backend)
	}
}

func (a *mainApp) ProbeSensor() error {
	found := 0

	log.Infoln("Probing serial ports...")
	if ports, err := serio.Probe(); err != nil {
		log.Warnln(err)
	} else {
		found += len(ports)
		log.Infof("Found %d live serial ports: \n", len(ports))
		for _, p := range ports {
			fmt.Printf("- %s\n", strings.TrimSpace(p))
		}
	}

	log.Infoln("Probing i2c buses...")
	if buses, err := board.Probe(); err != nil {
		log.Warnln(err)
	} else {
		found += len(buses)
		log.Infof("Found %d i2c buses: \n", len(buses))
		for _, b := range buses {
			fmt.Printf("- %s\n", b)
		}
	}

	if found == 0 {
		return errors.New("no attached rigs found")
	}
	return nil
}

func (a *mainApp) GetOpt() *config.NodeOpt {
	return a.opt
}

func (a *mainApp) SetOpt(opt *config.NodeOpt) { a.opt = opt }

var app MainApp = nil

func (a *mainApp) Run() {
	var once sync.Once
	once.Do(func() {
		app = a
	})

	if err := a.opt.Validate(); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}

	log.Infoln("version:", version.GitVersion)
	log.Infoln("device.index:", a.opt.Device.Index)
	log.Infoln("device.base:", a.opt.Device.Base)
	log.Infoln("target:", fmt.Sprintf("%s:%d", a.opt.Target.Host, a.opt.Target.Port))
	log.Infoln("sensor.backend:", a.opt.Sensor.Backend)
	log.Infoln("rates.sensor_hz:", a.opt.Rates.SensorHz)
	if a.opt.Rates.Coupled {
		log.Infoln("rates: coupled, transmit follows acquisition")
	} else {
		log.Infoln("rates.transmit_hz:", a.opt.Rates.TransmitHz)
	}
	log.Infoln("debug:", a.opt.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := buildSources(&a.opt.Sensor)
	if err != nil {
		log.Errorln("sensor bring-up failed:", err)
		os.Exit(1)
	}
	defer func() { _ = src.Close() }()

	tx := transmit.NewClient(&a.opt.Target, &a.opt.Device)
	if err := tx.Connect(ctx); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}

	n := node.New(a.opt, src, tx)
	_ = n.Run(ctx)
	log.Infoln("node stopped")
}

func (a *mainApp) PrepareRun() MainApp {
	desc := config.NewNodeDesc()
	err := desc.Parse(a.cmd)
	if err != nil {
		log.Errorln(err)
		os.Exit(1)
		return nil
	}
	desc.PostParse()
	a.opt = &desc.Opt
	a.name = config.DefaultAppName

	if a.opt.Debug {
		log.SetLevel(log.DebugLevel)
	}

	return a
}

type MainApp interface {
	Run()
	PrepareRun() MainApp
	GetOpt() *config.NodeOpt
	SetOpt(*config.NodeOpt)
	ProbeSensor() error
}

func NewMainApp(cmd *cobra.Command, args []string) MainApp {
	return &mainApp{
		cmd:  cmd,
		args: args,
	}
}

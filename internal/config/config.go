package config

import (
	"bufio"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"github.com/francesco-di-maggio/codecell/internal/utils"
	"os"
	"path"
	"strings"
)

const DefaultAppName = "codecell"
const DefaultConfigName = "config"

const DefaultDeviceIndex = 0
const DefaultBaseAddress = "/codecell"
const DefaultTargetPort = 8000
const DefaultJoinTimeoutS = 30
const DefaultJoinIntervalS = 2
const DefaultSensorHz = 100
const DefaultTransmitHz = 50
const DefaultPingIntervalS = 1
const DefaultQuatThreshold = 0.02
const DefaultAccelThreshold = 0.1
const DefaultAccelDeadzone = 0.75

// The coupled read-then-send profile historically shipped with a softer
// deadzone; it applies only when the user did not pin one explicitly.
const DefaultCoupledDeadzone = 0.5

const DefaultCapacityMAh = 500
const DefaultDrawMA = 120
const DefaultBackend = "sim"
const DefaultSerialName = "/dev/ttyUSB0"
const DefaultSerialBaud = 115200
const DefaultIMUAddr = 0x28
const DefaultGaugeAddr = 0x36

var userHomeDir, _ = os.UserHomeDir()
var DefaultConfig = path.Join(userHomeDir, ".config/"+DefaultAppName+"/"+DefaultConfigName+".yaml")
var DefaultConfigSearchPath0 = path.Join(userHomeDir, ".config", DefaultAppName)

const DefaultConfigSearchPath1 = "/etc/" + DefaultAppName
const DefaultConfigSearchPath2 = "./"
const DefaultConfigSearchPath3 = "/config"

type DeviceOpt struct {
	Index int    `yaml:"index" mapstructure:"index"`
	Base  string `yaml:"base" mapstructure:"base"`
}

type TargetOpt struct {
	Host          string `yaml:"host" mapstructure:"host"`
	Port          int    `yaml:"port" mapstructure:"port"`
	JoinTimeoutS  int    `yaml:"join_timeout_s" mapstructure:"join_timeout_s"`
	JoinIntervalS int    `yaml:"join_interval_s" mapstructure:"join_interval_s"`
}

type RateOpt struct {
	SensorHz      int  `yaml:"sensor_hz" mapstructure:"sensor_hz"`
	TransmitHz    int  `yaml:"transmit_hz" mapstructure:"transmit_hz"`
	Coupled       bool `yaml:"coupled" mapstructure:"coupled"`
	PingIntervalS int  `yaml:"ping_interval_s" mapstructure:"ping_interval_s"`
}

type StreamOpt struct {
	Orientation  bool `yaml:"orientation" mapstructure:"orientation"`
	Acceleration bool `yaml:"acceleration" mapstructure:"acceleration"`
	Battery      bool `yaml:"battery" mapstructure:"battery"`
	Buttons      bool `yaml:"buttons" mapstructure:"buttons"`
	Ping         bool `yaml:"ping" mapstructure:"ping"`
}

type FilterOpt struct {
	QuatThreshold  float32 `yaml:"quat_threshold" mapstructure:"quat_threshold"`
	AccelThreshold float32 `yaml:"accel_threshold" mapstructure:"accel_threshold"`
	AccelDeadzone  float32 `yaml:"accel_deadzone" mapstructure:"accel_deadzone"`
}

type BatteryOpt struct {
	CapacityMAh float32 `yaml:"capacity_mah" mapstructure:"capacity_mah"`
	DrawMA      float32 `yaml:"draw_ma" mapstructure:"draw_ma"`
}

type SerialOpt struct {
	Name string `yaml:"name" mapstructure:"name"`
	Baud int    `yaml:"baud" mapstructure:"baud"`
}

type BoardOpt struct {
	Bus        string   `yaml:"bus" mapstructure:"bus"`
	IMUAddr    int      `yaml:"imu_addr" mapstructure:"imu_addr"`
	GaugeAddr  int      `yaml:"gauge_addr" mapstructure:"gauge_addr"`
	VBusPin    string   `yaml:"vbus_pin" mapstructure:"vbus_pin"`
	ButtonPins []string `yaml:"button_pins" mapstructure:"button_pins"`
}

type SensorOpt struct {
	Backend string    `yaml:"backend" mapstructure:"backend"`
	Serial  SerialOpt `yaml:"serial" mapstructure:"serial"`
	Board   BoardOpt  `yaml:"board" mapstructure:"board"`
}

type NodeOpt struct {
	Device  DeviceOpt  `yaml:"device" mapstructure:"device"`
	Target  TargetOpt  `yaml:"target" mapstructure:"target"`
	Rates   RateOpt    `yaml:"rates" mapstructure:"rates"`
	Streams StreamOpt  `yaml:"streams" mapstructure:"streams"`
	Filters FilterOpt  `yaml:"filters" mapstructure:"filters"`
	Battery BatteryOpt `yaml:"battery" mapstructure:"battery"`
	Sensor  SensorOpt  `yaml:"sensor" mapstructure:"sensor"`
	Debug   bool       `yaml:"debug" mapstructure:"debug"`
}

type NodeDesc struct {
	Opt   NodeOpt
	Viper *viper.Viper
}

func NewNodeDesc() NodeDesc {
	return NodeDesc{
		Opt:   NewNodeOpt(),
		Viper: nil,
	}
}

func NewNodeOpt() NodeOpt {
	return NodeOpt{
		Device: DeviceOpt{
			Index: DefaultDeviceIndex,
			Base:  DefaultBaseAddress,
		},
		Target: TargetOpt{
			Port:          DefaultTargetPort,
			JoinTimeoutS:  DefaultJoinTimeoutS,
			JoinIntervalS: DefaultJoinIntervalS,
		},
		Rates: RateOpt{
			SensorHz:      DefaultSensorHz,
			TransmitHz:    DefaultTransmitHz,
			PingIntervalS: DefaultPingIntervalS,
		},
		Streams: StreamOpt{
			Orientation:  true,
			Acceleration: true,
			Battery:      true,
			Buttons:      true,
			Ping:         true,
		},
		Filters: FilterOpt{
			QuatThreshold:  DefaultQuatThreshold,
			AccelThreshold: DefaultAccelThreshold,
			AccelDeadzone:  DefaultAccelDeadzone,
		},
		Battery: BatteryOpt{
			CapacityMAh: DefaultCapacityMAh,
			DrawMA:      DefaultDrawMA,
		},
		Sensor: SensorOpt{
			Backend: DefaultBackend,
			Serial: SerialOpt{
				Name: DefaultSerialName,
				Baud: DefaultSerialBaud,
			},
			Board: BoardOpt{
				IMUAddr:   DefaultIMUAddr,
				GaugeAddr: DefaultGaugeAddr,
			},
		},
		Debug: false,
	}
}

func (o *NodeDesc) Parse(cmd *cobra.Command) error {
	vipCfg := viper.New()
	vipCfg.SetDefault("device.index", DefaultDeviceIndex)
	vipCfg.SetDefault("device.base", DefaultBaseAddress)
	vipCfg.SetDefault("target.port", DefaultTargetPort)
	vipCfg.SetDefault("target.join_timeout_s", DefaultJoinTimeoutS)
	vipCfg.SetDefault("target.join_interval_s", DefaultJoinIntervalS)
	vipCfg.SetDefault("rates.sensor_hz", DefaultSensorHz)
	vipCfg.SetDefault("rates.transmit_hz", DefaultTransmitHz)
	vipCfg.SetDefault("rates.coupled", false)
	vipCfg.SetDefault("rates.ping_interval_s", DefaultPingIntervalS)
	vipCfg.SetDefault("streams.orientation", true)
	vipCfg.SetDefault("streams.acceleration", true)
	vipCfg.SetDefault("streams.battery", true)
	vipCfg.SetDefault("streams.buttons", true)
	vipCfg.SetDefault("streams.ping", true)
	vipCfg.SetDefault("filters.quat_threshold", DefaultQuatThreshold)
	vipCfg.SetDefault("filters.accel_threshold", DefaultAccelThreshold)
	vipCfg.SetDefault("filters.accel_deadzone", DefaultAccelDeadzone)
	vipCfg.SetDefault("battery.capacity_mah", DefaultCapacityMAh)
	vipCfg.SetDefault("battery.draw_ma", DefaultDrawMA)
	vipCfg.SetDefault("sensor.backend", DefaultBackend)
	vipCfg.SetDefault("sensor.serial.name", DefaultSerialName)
	vipCfg.SetDefault("sensor.serial.baud", DefaultSerialBaud)
	vipCfg.SetDefault("sensor.board.imu_addr", DefaultIMUAddr)
	vipCfg.SetDefault("sensor.board.gauge_addr", DefaultGaugeAddr)
	vipCfg.SetDefault("debug", false)

	if configFileCmd, err := cmd.Flags().GetString("config"); err == nil && configFileCmd != "" {
		vipCfg.SetConfigFile(configFileCmd)
	} else {
		configFileEnv := os.Getenv("CODECELL_CONFIG")
		if configFileEnv != "" {
			vipCfg.SetConfigFile(configFileEnv)
		} else {
			vipCfg.SetConfigName(DefaultConfigName)
			vipCfg.SetConfigType("yaml")
			vipCfg.AddConfigPath(DefaultConfigSearchPath0)
			vipCfg.AddConfigPath(DefaultConfigSearchPath1)
			vipCfg.AddConfigPath(DefaultConfigSearchPath2)
			vipCfg.AddConfigPath(DefaultConfigSearchPath3)
		}
	}
	vipCfg.WatchConfig()

	vipCfg.SetEnvPrefix(DefaultAppName)
	vipCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vipCfg.AutomaticEnv()

	_ = vipCfg.BindPFlag("target.host", cmd.Flags().Lookup("host"))
	_ = vipCfg.BindPFlag("target.port", cmd.Flags().Lookup("port"))
	_ = vipCfg.BindPFlag("sensor.backend", cmd.Flags().Lookup("backend"))
	_ = vipCfg.BindPFlag("debug", cmd.Flags().Lookup("debug"))

	// If a config file is found, read it in.
	if err := vipCfg.ReadInConfig(); err == nil {
		log.Debugln("using config file:", vipCfg.ConfigFileUsed())
	} else {
		log.Warnln(err)
	}

	if err := vipCfg.Unmarshal(&o.Opt); err != nil {
		log.Fatalln("failed to unmarshal config")
		os.Exit(1)
	}

	o.Viper = vipCfg
	return nil
}

func (o *NodeDesc) PostParse() {
	if o.Opt.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if o.Opt.Rates.Coupled && o.Viper != nil && !o.Viper.InConfig("filters.accel_deadzone") {
		o.Opt.Filters.AccelDeadzone = DefaultCoupledDeadzone
	}
}

// Validate catches the configurations serve cannot start from.
func (o *NodeOpt) Validate() error {
	if o.Target.Host == "" {
		return errors.New("target.host is required")
	}
	if o.Rates.SensorHz <= 0 || o.Rates.SensorHz > 1000 {
		return fmt.Errorf("rates.sensor_hz must be in 1..1000, got %d", o.Rates.SensorHz)
	}
	if !o.Rates.Coupled && (o.Rates.TransmitHz <= 0 || o.Rates.TransmitHz > 1000) {
		return fmt.Errorf("rates.transmit_hz must be in 1..1000, got %d", o.Rates.TransmitHz)
	}
	if o.Filters.QuatThreshold < 0 || o.Filters.AccelThreshold < 0 || o.Filters.AccelDeadzone < 0 {
		return errors.New("filter thresholds must not be negative")
	}
	if o.Battery.CapacityMAh <= 0 || o.Battery.DrawMA <= 0 {
		return errors.New("battery capacity and draw must be positive")
	}
	switch o.Sensor.Backend {
	case "sim", "serial", "board":
	default:
		return fmt.Errorf("unknown sensor.backend %q", o.Sensor.Backend)
	}
	return nil
}

func (o *NodeDesc) SaveConfig() error {
	if o.Viper == nil {
		return errors.New("viper is nil")
	}
	f, err := os.OpenFile(o.Viper.ConfigFileUsed(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	defer func() { _ = f.Close() }()
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	s, _ := yaml.Marshal(o.Opt)
	_, err = w.Write(s)
	if err != nil {
		return err
	}
	_ = w.Flush()
	return nil
}

// InitCfg initConfig prepares config for the application
func InitCfg(cmd *cobra.Command, _ []string) error {
	printFlag, _ := cmd.Flags().GetBool("print")
	outputPath, _ := cmd.Flags().GetString("output")
	overwriteFlag, _ := cmd.Flags().GetBool("yes")

	desc := NewNodeDesc()
	err := desc.Parse(cmd)
	if err != nil {
		log.Errorln(err)
		return err
	}
	desc.PostParse()

	if printFlag {
		configBuffer, _ := yaml.Marshal(desc.Opt)
		fmt.Println(string(configBuffer))
		return nil
	}
	return utils.DumpOption(desc.Opt, outputPath, overwriteFlag)
}

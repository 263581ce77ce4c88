package cmd

import (
	"github.com/spf13/cobra"

	"github.com/francesco-di-maggio/codecell/internal/config"
	"github.com/francesco-di-maggio/codecell/internal/server"
)

var RootCmd = &cobra.Command{
	Use:   "codecell",
	Short: "motion sensor node streaming change-gated OSC",
	Long:  "motion sensor node streaming change-gated OSC",
}

func ServeCmdRunE(cmd *cobra.Command, args []string) error {
	server.NewMainApp(cmd, args).PrepareRun().Run()
	return nil
}

func ServeCmdFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "default configuration path")
	cmd.Flags().StringP("host", "H", "", "host the OSC receiver listens on")
	cmd.Flags().IntP("port", "p", config.DefaultTargetPort, "port the OSC receiver listens on")
	cmd.Flags().StringP("backend", "b", config.DefaultBackend, "sensor backend: sim, serial or board")
	cmd.Flags().Bool("debug", false, "toggle debug logging")
}

var ServeCmd = &cobra.Command{
	Use: "serve",
	SuggestFor: []string{
		"ru", "ser",
	},
	Short: "serve start the sensor node using predefined configs.",
	Long: `serve start the sensor node using predefined configs, by the following order:
1. path specified in --config flag
2. path defined CODECELL_CONFIG environment variable
3. default location $HOME/.config/codecell/config.yaml, /etc/codecell/config.yaml, current directory
The parameters in the configuration file will be overwritten by the following order:
1. command line arguments
2. environment variables
`,
	Example: `  codecell serve --config=/path/to/config
  codecell serve --host 192.168.1.10 --backend board`,
	RunE: ServeCmdRunE,
}

func InitCmdFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("print", false, "print config to stdout")
	cmd.Flags().BoolP("yes", "y", false, "overwrite")
	cmd.Flags().StringP("output", "o", config.DefaultConfig, "specify output directory")
}

var InitCmd = &cobra.Command{
	Use: "init",
	SuggestFor: []string{
		"ini", "in",
	},
	Short: "init create a configuration template",
	Long: `init create a configuration template.
The configuration file can be used to launch the sensor node.
If --print flag is present, the configuration will be printed to stdout.
If --output / -o flag is present, the configuration will be saved to the path specified
Otherwise init will output configuration file to $HOME/.config/codecell/config.yaml
If --yes / -y flag is present, the configuration will be overwrite without confirmation
`,
	Example: `  codecell init --print
  codecell init --output /path/to/config.yaml
  codecell init -o /path/to/config.yaml -y`,
	RunE: config.InitCfg,
}

var ProbeCmd = &cobra.Command{
	Use: "probe",
	SuggestFor: []string{
		"pro", "pr", "prob",
	},
	Short: "probe the attached rigs",
	Long: `probe the attached rigs.
The probe command will scan the serial ports and I2C buses for attached rigs
and print the result to stdout.
Warning: Only serial IMUs running at 115200 baud-rate can be detected.
`,
	Example: `  codecell probe`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = server.NewMainApp(cmd, args).PrepareRun().ProbeSensor()
	},
}

func getRootCmd() *cobra.Command {

	ServeCmdFlags(ServeCmd)
	RootCmd.AddCommand(ServeCmd)

	InitCmdFlags(InitCmd)
	RootCmd.AddCommand(InitCmd)

	RootCmd.AddCommand(ProbeCmd)

	return RootCmd
}

func Execute() {
	rootCmd := getRootCmd()
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

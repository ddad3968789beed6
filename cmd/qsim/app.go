package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/qsim"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	v       *viper.Viper
	config  *qsim.Config
	logger  *log.Logger
	metrics *qsim.Metrics
	sim     *qsim.Simulator
	debug   bool

	shutdown []func(context.Context) error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		v:      viper.New(),
	}
}

func (a *app) rootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "qsim",
		Short:         "A state-vector quantum circuit simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), configFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./qsim.yaml or $HOME/.config/qsim/qsim.yaml)")
	flags.Int("workers", 0, "worker goroutines for shot batches (default number of CPUs)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.Bool("trace", false, "print OpenTelemetry spans to stderr")
	flags.Bool("debug", false, "dump full results and log at debug level")

	for key, flag := range map[string]string{
		"workers":      "workers",
		"log_level":    "log-level",
		"metrics_addr": "metrics-addr",
		"trace":        "trace",
		"debug":        "debug",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		a.runCmd(),
		a.demoCmd(),
		a.gatesCmd(),
		a.benchCmd(),
	)

	return root
}

/*
setup loads the configuration from defaults, the config file, QSIM_*
environment variables and flags, in increasing priority, then starts
logging, telemetry and the simulator.
*/
func (a *app) setup(ctx context.Context, configFile string) error {
	if err := a.loadConfig(configFile); err != nil {
		return err
	}

	a.debug = a.v.GetBool("debug")
	if a.debug {
		a.config.LogLevel = "debug"
	}

	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "qsim",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	if lvl, err := log.ParseLevel(a.config.LogLevel); err == nil {
		a.logger.SetLevel(lvl)
	} else {
		a.logger.Warn("unknown log level, using info", "level", a.config.LogLevel)
	}

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("loaded config", "file", used)
	}

	a.metrics = qsim.NewMetrics()

	if a.v.GetBool("trace") {
		if err := a.startTracing(); err != nil {
			return err
		}
	}

	if addr := a.v.GetString("metrics_addr"); addr != "" {
		if err := a.serveMetrics(addr); err != nil {
			return err
		}
	}

	a.sim = qsim.NewSimulator(ctx, a.config, qsim.WithLogger(a.logger), qsim.WithMetrics(a.metrics))
	return nil
}

func (a *app) loadConfig(configFile string) error {
	def := qsim.NewConfig()
	a.v.SetDefault("workers", def.Workers)
	a.v.SetDefault("batch_size", def.BatchSize)
	a.v.SetDefault("seed", def.Seed)
	a.v.SetDefault("tolerance", def.Tolerance)
	a.v.SetDefault("max_qubits", def.MaxQubits)
	a.v.SetDefault("max_unitary_qubits", def.MaxUnitaryQubits)
	a.v.SetDefault("disable_fast_path", def.DisableFastPath)
	a.v.SetDefault("max_memory", def.MaxMemory)
	a.v.SetDefault("max_pending_batches", def.MaxPendingBatches)
	a.v.SetDefault("max_batch_rate", def.MaxBatchRate)
	a.v.SetDefault("result_ttl", def.ResultTTL)
	a.v.SetDefault("scheduling_timeout", def.SchedulingTimeout)
	a.v.SetDefault("log_level", def.LogLevel)

	a.v.SetEnvPrefix("QSIM")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if configFile != "" {
		a.v.SetConfigFile(configFile)
	} else {
		a.v.SetConfigName("qsim")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.config/qsim")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}

	cfg := qsim.NewConfig()
	if err := a.v.Unmarshal(cfg); err != nil {
		return err
	}

	a.config = cfg
	return nil
}

// close stops the simulator and flushes telemetry, most recent first.
func (a *app) close() {
	if a.sim != nil {
		a.sim.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil && a.logger != nil {
			a.logger.Warn("shutdown", "err", err)
		}
	}
}

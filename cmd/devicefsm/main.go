// Command devicefsm runs the fan/output device state machine under the supervisor,
// with an optional HTTP status server.
//
//	devicefsm --config devicefsm.yaml
//	kill -USR1 <pid>   # silent button
//	kill -HUP <pid>    # reload configuration
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/robbyt/go-devicefsm/config"
	"github.com/robbyt/go-devicefsm/device"
	"github.com/robbyt/go-devicefsm/hardware/modbus"
	"github.com/robbyt/go-devicefsm/hardware/sim"
	"github.com/robbyt/go-devicefsm/runnables/controller"
	"github.com/robbyt/go-devicefsm/runnables/statusserver"
	"github.com/robbyt/go-devicefsm/supervisor"
)

// Set with -ldflags during the build.
var Version = "dev"

type options struct {
	Config  string `short:"c" long:"config" description:"Path to the YAML configuration file"`
	Debug   bool   `short:"d" long:"debug" description:"Log at debug level"`
	Backend string `long:"backend" choice:"sim" choice:"modbus" description:"Override the hardware backend"`
	Listen  string `long:"listen" description:"Override the status server listen address"`
	Silent  bool   `long:"silent" description:"Start in silent mode"`
}

// loadConfig reads the file named by opts, or the defaults, and applies the
// command line overrides. It is called at start-up and on every reload.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, err
		}
	}

	if opts.Debug {
		cfg.Log.Level = "debug"
	}
	if opts.Backend != "" {
		cfg.Backend.Type = opts.Backend
	}
	if opts.Listen != "" {
		cfg.Status.Listen = opts.Listen
	}
	if opts.Silent {
		cfg.Device.Silent = true
	}
	return cfg, config.Validate(cfg)
}

func newHardware(cfg config.BackendConfig, handler slog.Handler) (device.Hardware, io.Closer, error) {
	switch cfg.Type {
	case config.BackendModbus:
		d, err := modbus.New(cfg.Modbus.ModbusDeviceConfig(), handler)
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	default:
		return sim.New(), nil, nil
	}
}

func controllerConfig(cfg *config.Config) (*controller.Config, error) {
	settings, err := cfg.Device.Settings()
	if err != nil {
		return nil, err
	}
	c, err := controller.NewConfig(cfg.Device.Period, settings)
	if err != nil {
		return nil, err
	}
	c.Silent = cfg.Device.Silent
	return c, nil
}

// run is the real entry point, so deferred closes happen before os.Exit.
func run(opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	handler := cfg.Log.Handler(os.Stdout)
	slog.SetDefault(slog.New(handler))
	logger := slog.Default()
	logger.Info("Starting devicefsm", "version", Version, "backend", cfg.Backend.Type)

	hw, closer, err := newHardware(cfg.Backend, handler)
	if err != nil {
		return fmt.Errorf("unable to create hardware backend: %w", err)
	}
	if closer != nil {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("Unable to close hardware backend", "error", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := device.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("unable to register metrics: %w", err)
	}

	settings, err := cfg.Device.Settings()
	if err != nil {
		return err
	}
	silent := device.NewSilentSwitch()
	silent.Set(cfg.Device.Silent)

	engine, err := device.NewEngine(hw,
		device.WithLogHandler(handler),
		device.WithSettings(settings),
		device.WithObserver(metrics),
		device.WithSilentSwitch(silent),
	)
	if err != nil {
		return err
	}

	ctrl, err := controller.NewRunner(engine,
		controller.WithName("device"),
		controller.WithLogHandler(handler),
		controller.WithConfigCallback(func() (*controller.Config, error) {
			next, err := loadConfig(opts)
			if err != nil {
				return nil, err
			}
			return controllerConfig(next)
		}),
	)
	if err != nil {
		return err
	}

	runnables := []supervisor.Runnable{ctrl}
	var pid0 *supervisor.PIDZero

	if cfg.Status.Listen != "" {
		scfg, err := statusserver.NewConfig(cfg.Status.Listen, 0)
		if err != nil {
			return err
		}
		status, err := statusserver.NewRunner(ctrl, scfg,
			statusserver.WithName("status"),
			statusserver.WithLogHandler(handler),
			statusserver.WithGatherer(reg),
			statusserver.WithServices(func() map[string]string {
				return pid0.GetStateMap()
			}),
		)
		if err != nil {
			return err
		}
		runnables = append(runnables, status)
	}

	pid0, err = supervisor.New(
		supervisor.WithLogHandler(handler),
		supervisor.WithRunnables(runnables...),
	)
	if err != nil {
		return err
	}

	if err := pid0.Run(); err != nil {
		if errors.Is(err, device.ErrFatal) {
			return fmt.Errorf("device state machine stopped on a defect: %w", err)
		}
		return err
	}
	return nil
}

func main() {
	opts := &options{}
	if _, err := flags.Parse(opts); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		slog.Error("devicefsm failed", "error", err)
		os.Exit(1)
	}
}

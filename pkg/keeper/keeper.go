package keeper

import (
	"context"

	corelogging "github.com/core-tools/hsu-core/pkg/logging"

	"github.com/core-tools/hsu-keeper/pkg/config"
	"github.com/core-tools/hsu-keeper/pkg/configwatch"
	"github.com/core-tools/hsu-keeper/pkg/control"
	"github.com/core-tools/hsu-keeper/pkg/launcher"
	"github.com/core-tools/hsu-keeper/pkg/lifecycle"
	"github.com/core-tools/hsu-keeper/pkg/logcollection"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/processfile"
	"github.com/core-tools/hsu-keeper/pkg/service"
	"github.com/core-tools/hsu-keeper/pkg/supervisor"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

type Options struct {
	// ConfigFile is watched for enabled flag changes when WatchConfig is set.
	ConfigFile  string
	WatchConfig bool
}

// Keeper wires the loaded configuration to the supervision engine and serves one
// host session.
type Keeper struct {
	options    Options
	config     *config.KeeperConfig
	units      []unit.Descriptor
	launcher   unit.Launcher
	collector  logcollection.LogCollector
	coreLogger corelogging.Logger
	logger     logging.Logger
}

// New prepares a keeper. sink receives the output of spawned processes; it may be nil.
func New(cfg *config.KeeperConfig, units []unit.Descriptor, options Options, sink logcollection.StructuredLogger, coreLogger corelogging.Logger, logger logging.Logger) *Keeper {
	k := &Keeper{
		options:    options,
		config:     cfg,
		units:      units,
		coreLogger: coreLogger,
		logger:     logger,
	}

	if sink != nil {
		k.collector = logcollection.NewLogCollector(sink)
	}

	var pidFiles *processfile.ProcessFileManager
	if cfg.Keeper.PIDDirectory != "" {
		pidFiles = processfile.NewProcessFileManager(processfile.ProcessFileConfig{
			BaseDirectory: cfg.Keeper.PIDDirectory,
		}, logger)
	}

	k.launcher = launcher.NewOSLauncher(launcher.Options{
		Collector: k.collector,
		PIDFiles:  pidFiles,
		Service:   service.Options{PollPeriod: cfg.Keeper.PollInterval},
	}, logger)

	return k
}

// Serve runs the units until the host stops the keeper. It matches host.RunFunc.
// Every unit has finished when Serve returns, whatever the outcome.
func (k *Keeper) Serve(events <-chan lifecycle.Event, reporter lifecycle.Reporter) error {
	k.logger.Infof("Keeper starting, units: %d, poll interval: %v", len(k.units), k.config.Keeper.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signal := supervisor.NewShutdownSignal()
	scheduler := supervisor.NewScheduler(k.launcher, supervisor.Options{PollPeriod: k.config.Keeper.PollInterval}, k.logger)
	tasks := scheduler.Start(k.units, signal)

	hooks := newStopHooks(k.config.Keeper.StopHooks, k.logger)
	bridge := lifecycle.NewBridge(events, signal, tasks, reporter, lifecycle.Options{
		StopWaitHint: k.config.Keeper.StopWaitHint,
		StopHooks:    hooks.funcs(),
	}, k.logger)

	if k.config.Keeper.ControlPort > 0 {
		server, err := control.NewServer(control.ServerOptions{Port: k.config.Keeper.ControlPort}, k.coreLogger, k.logger)
		if err != nil {
			k.logger.Errorf("Status endpoint disabled: %v", err)
		} else {
			server.Start(ctx, bridge, tasks)
			defer server.Shutdown(context.Background())
		}
	}

	if k.options.WatchConfig && k.options.ConfigFile != "" {
		watcher, err := configwatch.Start(ctx, k.options.ConfigFile, k.units, tasks, configwatch.Options{}, k.logger)
		if err != nil {
			k.logger.Errorf("Configuration watch disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	err := bridge.Run()
	if err != nil {
		k.logger.Errorf("Lifecycle bridge failed, stopping all units: %v", err)
	}

	signal.Set()
	tasks.Wait()

	if k.collector != nil {
		k.collector.Stop()
	}
	if hookErr := hooks.err(); hookErr != nil {
		k.logger.Warnf("Stop hooks reported errors: %v", hookErr)
	}

	k.logger.Infof("Keeper stopped")
	return err
}

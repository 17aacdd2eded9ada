package keeper

import (
	"fmt"

	corelogging "github.com/core-tools/hsu-core/pkg/logging"

	"github.com/core-tools/hsu-keeper/pkg/config"
	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/host"
	"github.com/core-tools/hsu-keeper/pkg/logcollection"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/processfile"
)

// RunOptions are the command line inputs of the run and runservice commands.
type RunOptions struct {
	ConfigFile  string
	ServiceName string
	// LogLevel and LogFormat override the configuration file when set.
	LogLevel    string
	LogFormat   string
	WatchConfig bool
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

// Run supervises the configured units in the foreground until SIGINT or SIGTERM.
func Run(options RunOptions) error {
	k, sink, err := prepare(options, "stdout")
	if err != nil {
		return err
	}
	defer sink.Close()

	return host.NewConsole(k.logger).Run(k.Serve)
}

// RunService is the entry point started by the host service manager. It returns
// only after Stopped was reported or a status report failed.
func RunService(options RunOptions) error {
	isService, err := host.IsService()
	if err != nil {
		return errors.NewInternalError("failed to detect service session", err)
	}

	output := "stdout"
	if isService {
		output = "none"
	}

	k, sink, err := prepare(options, output)
	if err != nil {
		return err
	}
	defer sink.Close()

	name := options.ServiceName
	if name == "" {
		name = processfile.DefaultAppName
	}
	return host.RunService(name, k.Serve, k.logger)
}

// prepare loads the configuration and builds the log sink and the keeper.
func prepare(options RunOptions, output string) (*Keeper, *logcollection.ZapAdapter, error) {
	cfg, units, err := config.Load(options.ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	zapConfig := logcollection.ZapConfig{
		Level:  cfg.Keeper.LogLevel,
		Format: cfg.Keeper.LogFormat,
		Output: output,
		File:   cfg.Keeper.LogFile,
	}
	if options.LogLevel != "" {
		zapConfig.Level = options.LogLevel
	}
	if options.LogFormat != "" {
		zapConfig.Format = options.LogFormat
	}
	if zapConfig.File == "" {
		zapConfig.File = logcollection.DefaultLogFile(processfile.DefaultAppName)
	}

	sink, err := logcollection.NewZapAdapter(zapConfig)
	if err != nil {
		return nil, nil, errors.NewInternalError("failed to create log sink", err)
	}

	funcs := sink.LogFuncs()
	logger := logging.NewLogger(logPrefix("hsu-keeper"), funcs)
	coreLogger := corelogging.NewLogger(
		logPrefix("hsu-core"), corelogging.LogFuncs{
			Debugf: funcs.Debugf,
			Infof:  funcs.Infof,
			Warnf:  funcs.Warnf,
			Errorf: funcs.Errorf,
		})

	logger.Infof("Using CONFIGURATION FILE: %s", options.ConfigFile)
	for _, problem := range config.CheckUnits(units) {
		logger.Warnf("%v", problem)
	}

	k := New(cfg, units, Options{
		ConfigFile:  options.ConfigFile,
		WatchConfig: options.WatchConfig,
	}, sink, coreLogger, logger)

	return k, sink, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/core-tools/hsu-keeper/pkg/config"
	"github.com/core-tools/hsu-keeper/pkg/keeper"
	"github.com/core-tools/hsu-keeper/pkg/processfile"
	"github.com/core-tools/hsu-keeper/pkg/servicectl"
)

// configPath resolves the configuration file to an absolute path.
func configPath() (string, error) {
	path := opts.ConfigFile
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", err
		}
		path = filepath.Join(filepath.Dir(exe), processfile.DefaultAppName+".yaml")
	}
	return filepath.Abs(path)
}

func runOptions() (keeper.RunOptions, error) {
	path, err := configPath()
	if err != nil {
		return keeper.RunOptions{}, err
	}
	return keeper.RunOptions{
		ConfigFile:  path,
		ServiceName: opts.ServiceName,
		LogLevel:    opts.LogLevel,
		LogFormat:   opts.LogFormat,
		WatchConfig: true,
	}, nil
}

func manager() *servicectl.Manager {
	return servicectl.NewManager(opts.ServiceName, servicectl.Options{}, cliLogger())
}

type installCommand struct{}

func (c *installCommand) Execute(args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := config.ValidateConfigFile(path); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.Abs(exe)
	if err != nil {
		return err
	}
	return manager().Install(context.Background(), servicectl.InstallOptions{
		Executable: exe,
		Args:       []string{"--name", opts.ServiceName, "--config", path, "runservice"},
	})
}

type uninstallCommand struct{}

func (c *uninstallCommand) Execute(args []string) error {
	return manager().Uninstall(context.Background())
}

type startCommand struct{}

func (c *startCommand) Execute(args []string) error {
	return manager().Start(context.Background())
}

type stopCommand struct{}

func (c *stopCommand) Execute(args []string) error {
	return manager().Stop(context.Background())
}

type pauseCommand struct{}

func (c *pauseCommand) Execute(args []string) error {
	return manager().Pause(context.Background())
}

type resumeCommand struct{}

func (c *resumeCommand) Execute(args []string) error {
	return manager().Resume(context.Background())
}

type statusCommand struct{}

func (c *statusCommand) Execute(args []string) error {
	state, err := manager().Status(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", opts.ServiceName, state)
	return nil
}

type runCommand struct{}

func (c *runCommand) Execute(args []string) error {
	options, err := runOptions()
	if err != nil {
		return err
	}
	return keeper.Run(options)
}

type runServiceCommand struct{}

func (c *runServiceCommand) Execute(args []string) error {
	options, err := runOptions()
	if err != nil {
		return err
	}
	return keeper.RunService(options)
}

type unitArgs struct {
	ID string `positional-arg-name:"unit-id" required:"yes"`
}

type enableCommand struct {
	Args unitArgs `positional-args:"yes" required:"yes"`
}

func (c *enableCommand) Execute(args []string) error {
	return setEnabled(c.Args.ID, true)
}

type disableCommand struct {
	Args unitArgs `positional-args:"yes" required:"yes"`
}

func (c *disableCommand) Execute(args []string) error {
	return setEnabled(c.Args.ID, false)
}

// setEnabled edits the file; a running keeper picks the change up from its watcher.
func setEnabled(id string, enabled bool) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := config.SetUnitEnabled(path, id, enabled); err != nil {
		return err
	}
	cliLogger().Infof("Unit %s enabled: %t in %s", id, enabled, path)
	return nil
}

type validateCommand struct{}

func (c *validateCommand) Execute(args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	_, units, err := config.Load(path)
	if err != nil {
		return err
	}

	logger := cliLogger()
	for _, u := range units {
		logger.Infof("%s", u)
	}
	for _, problem := range config.CheckUnits(units) {
		logger.Warnf("%v", problem)
	}
	logger.Infof("Configuration is valid: %s, units: %d", path, len(units))
	return nil
}

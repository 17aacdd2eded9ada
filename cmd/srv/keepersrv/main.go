package main

import (
	"fmt"
	"os"

	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"

	keeperLogging "github.com/core-tools/hsu-keeper/pkg/logging"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	ConfigFile  string `short:"c" long:"config" description:"configuration file (.yaml, .toml or legacy .json), defaults to hsu-keeper.yaml next to the executable"`
	ServiceName string `long:"name" default:"hsu-keeper" description:"host service name"`
	LogLevel    string `long:"log-level" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"overrides the configured log level"`
	LogFormat   string `long:"log-format" choice:"json" choice:"console" description:"overrides the configured log format"`

	Install    installCommand    `command:"install" description:"register the keeper as an auto-start service and start it"`
	Uninstall  uninstallCommand  `command:"uninstall" description:"stop and remove the keeper service"`
	Start      startCommand      `command:"start" description:"start the keeper service"`
	Stop       stopCommand       `command:"stop" description:"stop the keeper service"`
	Pause      pauseCommand      `command:"pause" description:"pause the keeper service"`
	Resume     resumeCommand     `command:"resume" description:"resume the keeper service"`
	Status     statusCommand     `command:"status" description:"print the keeper service state"`
	Run        runCommand        `command:"run" description:"supervise units in the foreground until interrupted"`
	RunService runServiceCommand `command:"runservice" description:"entry point used by the host service manager"`
	Enable     enableCommand     `command:"enable" description:"enable a unit in the configuration file"`
	Disable    disableCommand    `command:"disable" description:"disable a unit in the configuration file"`
	Validate   validateCommand   `command:"validate" description:"validate the configuration file"`
}

var opts flagOptions

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s-server , ", module)
}

func cliLogger() keeperLogging.Logger {
	logger := sprintfLogging.NewStdSprintfLogger()
	return keeperLogging.NewLogger(
		logPrefix("hsu-keeper"), keeperLogging.LogFuncs{
			Debugf: logger.Debugf,
			Infof:  logger.Infof,
			Warnf:  logger.Warnf,
			Errorf: logger.Errorf,
		})
}

func main() {
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(argv)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Printf("Command failed: %v\n", err)
		os.Exit(1)
	}
}

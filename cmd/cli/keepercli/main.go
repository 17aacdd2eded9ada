package main

import (
	"context"
	"fmt"
	"os"
	"time"

	sprintfLogging "github.com/core-tools/hsu-core/pkg/logging/sprintf"

	coreControl "github.com/core-tools/hsu-core/pkg/control"
	coreDomain "github.com/core-tools/hsu-core/pkg/domain"
	coreLogging "github.com/core-tools/hsu-core/pkg/logging"

	keeperControl "github.com/core-tools/hsu-keeper/pkg/control"
	keeperLogging "github.com/core-tools/hsu-keeper/pkg/logging"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	ServerPath string   `long:"server" description:"path to the keeper executable"`
	AttachPort int      `long:"port" description:"status port of a running keeper"`
	Units      []string `long:"unit" description:"unit id to query, repeatable"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s-client , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v", err)
		os.Exit(1)
	}

	logger := sprintfLogging.NewStdSprintfLogger()

	logger.Infof("opts: %+v", opts)

	if opts.ServerPath == "" && opts.AttachPort == 0 {
		fmt.Println("Server path or attach port is required")
		os.Exit(1)
	}

	coreLogger := coreLogging.NewLogger(
		logPrefix("hsu-core"), coreLogging.LogFuncs{
			Debugf: logger.Debugf,
			Infof:  logger.Infof,
			Warnf:  logger.Warnf,
			Errorf: logger.Errorf,
		})
	keeperLogger := keeperLogging.NewLogger(
		logPrefix("hsu-keeper"), keeperLogging.LogFuncs{
			Debugf: logger.Debugf,
			Infof:  logger.Infof,
			Warnf:  logger.Warnf,
			Errorf: logger.Errorf,
		})

	coreConnectionOptions := coreControl.ConnectionOptions{
		ServerPath: opts.ServerPath,
		AttachPort: opts.AttachPort,
	}
	coreConnection, err := coreControl.NewConnection(coreConnectionOptions, coreLogger)
	if err != nil {
		logger.Errorf("Failed to create core connection: %v", err)
		os.Exit(1)
	}

	coreClientGateway := coreControl.NewGRPCClientGateway(coreConnection.GRPC(), coreLogger)
	keeperClientGateway := keeperControl.NewGRPCClientGateway(coreConnection.GRPC(), keeperLogger)

	ctx := context.Background()

	retryPingOptions := coreDomain.RetryPingOptions{
		RetryAttempts: 10,
		RetryInterval: 1 * time.Second,
	}
	err = coreDomain.RetryPing(ctx, coreClientGateway, retryPingOptions, coreLogger)
	if err != nil {
		logger.Errorf("Failed to ping keeper: %v", err)
		os.Exit(1)
	}

	status, err := keeperClientGateway.Status(ctx, "")
	if err != nil {
		logger.Errorf("Failed to get keeper status: %v", err)
		os.Exit(1)
	}
	logger.Infof("Keeper: %s", status)

	for _, id := range opts.Units {
		status, err := keeperClientGateway.Status(ctx, id)
		if err != nil {
			logger.Errorf("Failed to get status of unit %s: %v", id, err)
			continue
		}
		logger.Infof("Unit %s: %s", id, status)
	}

	logger.Infof("Done")
}

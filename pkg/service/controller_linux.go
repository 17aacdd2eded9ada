//go:build linux

package service

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// systemctlController drives a systemd unit through systemctl.
type systemctlController struct {
	unitName      string
	systemctlPath string
}

func newController(name string) (controller, error) {
	path, err := exec.LookPath("systemctl")
	if err != nil {
		return nil, fmt.Errorf("systemctl not available: %w", err)
	}
	unitName := name
	if !strings.Contains(unitName, ".") {
		unitName += ".service"
	}
	return &systemctlController{unitName: unitName, systemctlPath: path}, nil
}

func (c *systemctlController) execSystemctl(ctx context.Context, args ...string) (string, error) {
	fullArgs := append(args, c.unitName)
	cmd := exec.CommandContext(ctx, c.systemctlPath, fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (c *systemctlController) Query(ctx context.Context) (State, error) {
	output, err := c.execSystemctl(ctx, "show", "--property=LoadState,ActiveState", "--no-pager")
	if err != nil {
		return StateUnknown, err
	}
	return parseShowOutput(output)
}

func (c *systemctlController) Start(ctx context.Context) error {
	_, err := c.execSystemctl(ctx, "start", "--no-block")
	return err
}

func (c *systemctlController) Stop(ctx context.Context) error {
	_, err := c.execSystemctl(ctx, "stop", "--no-block")
	return err
}

func (c *systemctlController) Close() {}

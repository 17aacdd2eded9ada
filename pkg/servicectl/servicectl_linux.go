//go:build linux

package servicectl

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/core-tools/hsu-keeper/pkg/atomicfile"
	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/service"
)

const systemdUnitDir = "/etc/systemd/system"

type systemdBackend struct {
	unitDir   string
	systemctl string
}

func newBackend() backend {
	return &systemdBackend{unitDir: systemdUnitDir, systemctl: "systemctl"}
}

func (b *systemdBackend) unitPath(name string) string {
	return filepath.Join(b.unitDir, name+".service")
}

func (b *systemdBackend) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, b.systemctl, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %s: %w (stderr: %s)", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (b *systemdBackend) install(ctx context.Context, name string, options InstallOptions) error {
	if err := atomicfile.WriteFile(b.unitPath(name), []byte(BuildSystemdUnit(options)), 0644); err != nil {
		return err
	}
	if err := b.run(ctx, "daemon-reload"); err != nil {
		return err
	}
	return b.run(ctx, "enable", name+".service")
}

func (b *systemdBackend) uninstall(ctx context.Context, name string) error {
	if err := b.run(ctx, "disable", name+".service"); err != nil {
		return err
	}
	if err := os.Remove(b.unitPath(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return b.run(ctx, "daemon-reload")
}

func (b *systemdBackend) start(ctx context.Context, name string) error {
	return b.run(ctx, "start", "--no-block", name+".service")
}

func (b *systemdBackend) stop(ctx context.Context, name string) error {
	return b.run(ctx, "stop", "--no-block", name+".service")
}

func (b *systemdBackend) pause(ctx context.Context, name string) error {
	return errors.NewNotSupportedError("systemd services cannot be paused", nil).WithContext("service", name)
}

func (b *systemdBackend) resume(ctx context.Context, name string) error {
	return errors.NewNotSupportedError("systemd services cannot be paused", nil).WithContext("service", name)
}

func (b *systemdBackend) query(ctx context.Context, name string) (service.State, error) {
	return service.QueryState(ctx, name)
}

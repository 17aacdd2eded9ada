package launcher

import (
	"context"
	"testing"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logging"
	"github.com/core-tools/hsu-keeper/pkg/unit"

	"github.com/stretchr/testify/assert"
)

func TestOSLauncher_RejectsMalformedDescriptors(t *testing.T) {
	l := NewOSLauncher(Options{}, logging.NewNopLogger())

	tests := []unit.Descriptor{
		{ID: "p", Kind: unit.KindProcess},
		{ID: "s", Kind: unit.KindService},
		{ID: "x", Kind: "container"},
	}

	for _, d := range tests {
		h, err := l.Launch(context.Background(), d)
		assert.Nil(t, h, d.ID)
		assert.True(t, errors.IsStartError(err), d.ID)
	}
}

func TestOSLauncher_CancelledContext(t *testing.T) {
	l := NewOSLauncher(Options{}, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := l.Launch(ctx, unit.Descriptor{ID: "p", Kind: unit.KindProcess, Process: &unit.ProcessSpec{Program: "sleep"}})
	assert.Nil(t, h)
	assert.True(t, errors.IsCancelledError(err))
}

func TestOSLauncher_StartFailureIsNilHandle(t *testing.T) {
	l := NewOSLauncher(Options{}, logging.NewNopLogger())

	h, err := l.Launch(context.Background(), unit.Descriptor{
		ID:      "missing",
		Kind:    unit.KindProcess,
		Process: &unit.ProcessSpec{Program: "/nonexistent/keeper-launcher-test"},
	})
	assert.True(t, h == nil)
	assert.True(t, errors.IsStartError(err))
}

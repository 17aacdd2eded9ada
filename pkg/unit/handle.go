package unit

import "context"

// Status is the outcome of a non-blocking poll of a live handle.
type Status struct {
	// Exited is true once the worker is no longer running, whatever the reason.
	Exited bool
	// ExitCode is the process exit code, or -1 when not applicable.
	ExitCode int
	// Detail is a short description for logs, e.g. "exit status 1" or "state: stopped".
	Detail string
}

// Running is the status of a live worker.
var Running = Status{ExitCode: -1, Detail: "running"}

// Handle is one live attempt of a unit: a spawned process or a started service.
// A handle is owned by exactly one supervisor and is never shared.
type Handle interface {
	// Poll checks the worker without blocking.
	Poll() (Status, error)

	// Stop issues a stop and waits until the worker is observed gone.
	Stop(ctx context.Context) error

	// Release frees the OS references held by the handle. Safe to call more than once.
	Release()

	String() string
}

// Launcher starts a new handle for a descriptor. Implementations dispatch on Kind.
type Launcher interface {
	Launch(ctx context.Context, descriptor Descriptor) (Handle, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, descriptor Descriptor) (Handle, error)

func (f LauncherFunc) Launch(ctx context.Context, descriptor Descriptor) (Handle, error) {
	return f(ctx, descriptor)
}

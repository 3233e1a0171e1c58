package system

import (
	"context"
	"os/exec"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// ServiceManager controls and observes host services.
type ServiceManager interface {
	// Restart restarts the named service.
	Restart(ctx context.Context, name string) error

	// IsActive reports whether the named service is currently running.
	IsActive(ctx context.Context, name string) (bool, error)
}

// SystemdManager implements ServiceManager with systemctl.
type SystemdManager struct {
	// Path is the systemctl binary. Defaults to "systemctl".
	Path string
}

// NewSystemdManager returns a SystemdManager using the systemctl on PATH.
func NewSystemdManager() *SystemdManager {
	return &SystemdManager{Path: "systemctl"}
}

// Restart restarts the unit.
func (m *SystemdManager) Restart(ctx context.Context, name string) error {
	err := exec.CommandContext(ctx, m.Path, "restart", name).Run()
	if err != nil {
		return errdefs.WrapService(err, "failed to restart service "+name)
	}

	return nil
}

// IsActive reports whether the unit is active. systemctl exits non-zero for
// inactive units, which is a valid answer, not an error.
func (m *SystemdManager) IsActive(ctx context.Context, name string) (bool, error) {
	err := exec.CommandContext(ctx, m.Path, "is-active", "--quiet", name).Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}

	return false, errdefs.WrapService(err, "failed to query service "+name)
}

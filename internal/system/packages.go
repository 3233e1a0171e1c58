// Package system wraps the host-side collaborators (package manager, service
// manager, chronyc) behind narrow interfaces so the reconciler never touches
// the host directly.
package system

import (
	"context"
	"os/exec"
	"strings"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// PackageManager installs host packages.
type PackageManager interface {
	// Install installs the given packages. It is idempotent: installing an
	// already-present package is a no-op.
	Install(ctx context.Context, packages ...string) error
}

// AptManager implements PackageManager with apt-get.
type AptManager struct {
	// Path is the apt-get binary. Defaults to "apt-get".
	Path string
}

// NewAptManager returns an AptManager using the apt-get on PATH.
func NewAptManager() *AptManager {
	return &AptManager{Path: "apt-get"}
}

// Install refreshes the package cache and installs the packages.
func (m *AptManager) Install(ctx context.Context, packages ...string) error {
	if err := m.run(ctx, "update"); err != nil {
		return errdefs.WrapService(err, "failed to update package cache")
	}

	args := append([]string{"install", "--yes", "--no-install-recommends"}, packages...)

	if err := m.run(ctx, args...); err != nil {
		return errdefs.WrapService(err, "failed to install packages "+strings.Join(packages, ", "))
	}

	return nil
}

func (m *AptManager) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, m.Path, args...)
	cmd.Env = append(cmd.Environ(), "DEBIAN_FRONTEND=noninteractive")

	return cmd.Run()
}

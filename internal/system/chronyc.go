package system

import (
	"context"
	"os/exec"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// StatusClient queries the running daemon for machine-readable reports.
type StatusClient interface {
	// Tracking returns the raw `chronyc -c tracking` output.
	Tracking(ctx context.Context) (string, error)

	// Sources returns the raw `chronyc -c sources` output.
	Sources(ctx context.Context) (string, error)
}

// Chronyc implements StatusClient by invoking the chronyc binary with CSV
// output enabled.
type Chronyc struct {
	// Path is the chronyc binary. Defaults to "chronyc".
	Path string
}

// NewChronyc returns a Chronyc using the chronyc on PATH.
func NewChronyc() *Chronyc {
	return &Chronyc{Path: "chronyc"}
}

// Tracking runs `chronyc -c tracking`.
func (c *Chronyc) Tracking(ctx context.Context) (string, error) {
	return c.run(ctx, "tracking")
}

// Sources runs `chronyc -c sources`.
func (c *Chronyc) Sources(ctx context.Context) (string, error) {
	return c.run(ctx, "sources")
}

func (c *Chronyc) run(ctx context.Context, report string) (string, error) {
	out, err := exec.CommandContext(ctx, c.Path, "-c", report).Output()
	if err != nil {
		return "", errdefs.WrapService(err, "chronyc "+report+" query failed")
	}

	return string(out), nil
}

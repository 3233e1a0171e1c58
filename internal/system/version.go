package system

import (
	"context"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// minNTSVersion is the first chrony release with NTS server support.
//
//nolint:gochecknoglobals // parsed constant
var minNTSVersion = semver.MustParse("4.0.0")

// versionPattern matches the version in chronyd's banner, e.g.
// "chronyd (chrony) version 4.2 (+CMDMON +NTP +REFCLOCK ...)".
//
//nolint:gochecknoglobals // compiled once
var versionPattern = regexp.MustCompile(`version (\d+(?:\.\d+){0,2})`)

// VersionClient reports the installed daemon version.
type VersionClient interface {
	// DaemonVersion returns the installed chronyd version.
	DaemonVersion(ctx context.Context) (*semver.Version, error)
}

// ChronydVersion implements VersionClient by invoking chronyd.
type ChronydVersion struct {
	// Path is the chronyd binary. Defaults to "chronyd".
	Path string
}

// NewChronydVersion returns a ChronydVersion using the chronyd on PATH.
func NewChronydVersion() *ChronydVersion {
	return &ChronydVersion{Path: "chronyd"}
}

// DaemonVersion runs `chronyd --version` and parses the banner.
func (c *ChronydVersion) DaemonVersion(ctx context.Context) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, c.Path, "--version").CombinedOutput()
	if err != nil {
		return nil, errdefs.WrapService(err, "failed to query chronyd version")
	}

	return ParseDaemonVersion(string(out))
}

// ParseDaemonVersion extracts the semantic version from chronyd's banner.
func ParseDaemonVersion(banner string) (*semver.Version, error) {
	match := versionPattern.FindStringSubmatch(banner)
	if match == nil {
		return nil, errdefs.NewConfigurationf("could not find a version in chronyd banner %q", banner)
	}

	version, err := semver.NewVersion(match[1])
	if err != nil {
		return nil, errdefs.WrapConfiguration(err, "unparseable chronyd version "+match[1])
	}

	return version, nil
}

// SupportsNTS reports whether the daemon version can serve NTS.
func SupportsNTS(version *semver.Version) bool {
	return !version.LessThan(minNTSVersion)
}

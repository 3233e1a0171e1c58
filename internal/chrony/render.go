package chrony

import (
	"path/filepath"
	"strings"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// KeyPair is one PEM-encoded TLS certificate/key pair used for the NTS
// server identity.
type KeyPair struct {
	Certificate string
	Key         string
}

// staticDirectives is the fixed tail of every rendered configuration.
const staticDirectives = `bindcmdaddress 127.0.0.1
driftfile /var/lib/chrony/chrony.drift
ntsdumpdir /var/lib/chrony
logdir /var/log/chrony
maxupdateskew 100.0
rtcsync
makestep 1 3
leapsectz right/UTC
allow 0.0.0.0/0
allow ::/0
`

// Render produces the chrony configuration file content for the given
// sources and optional NTS certificate material. It is a pure function:
// identical inputs yield byte-identical output. Source lines appear in input
// order; when withCerts is true, ntsservercert/ntsserverkey directives
// pointing into certsDir are emitted, otherwise they are omitted entirely so
// a later removal of certificate material transitions the daemon out of
// secure mode on the next render.
//
// An empty sources slice renders the unconfigured form: the static block
// only, with no pool directives.
func Render(sources []Source, withCerts bool, certsDir string) (string, error) {
	directives := make([]string, 0, len(sources))

	for _, source := range sources {
		if source.Host == "" {
			return "", errdefs.NewConfiguration("refusing to render a pool directive with an empty host")
		}

		directives = append(directives, source.Directive())
	}

	parts := make([]string, 0, 3)

	if len(directives) > 0 {
		parts = append(parts, strings.Join(directives, "\n"))
	}

	if withCerts {
		parts = append(parts, strings.Join([]string{
			"ntsservercert " + filepath.Join(certsDir, certFileName),
			"ntsserverkey " + filepath.Join(certsDir, keyFileName),
		}, "\n"))
	}

	parts = append(parts, staticDirectives)

	return strings.Join(parts, "\n\n"), nil
}

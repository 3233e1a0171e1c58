package chrony

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

const (
	// DefaultConfigPath is where Debian's chrony package reads its config.
	DefaultConfigPath = "/etc/chrony/chrony.conf"
	// DefaultCertsDir holds the rendered NTS certificate/key files.
	DefaultCertsDir = "/etc/chrony/certs"
	// DefaultOwner is the system user the chrony daemon runs as on Debian.
	DefaultOwner = "_chrony"

	certFileName = "0000.crt"
	keyFileName  = "0000.key"
	lockFileName = ".chrony-operator.lock"

	lockTimeout = 30 * time.Second

	certsDirMode = 0o700
	certFileMode = 0o600
)

// Service manages the chrony daemon's on-disk state: the configuration file
// and the NTS certificate directory. All writes are atomic (temp file +
// rename) and serialized with an advisory file lock so concurrent operator
// processes cannot interleave partial state.
type Service struct {
	// ConfigPath is the daemon configuration file path.
	ConfigPath string

	// CertsDir holds the rendered certificate and key files.
	CertsDir string

	// Owner is the system user that must own the certificate files. Empty
	// disables ownership handling (used by tests running unprivileged).
	Owner string
}

// NewService returns a Service with the Debian default paths.
func NewService() *Service {
	return &Service{
		ConfigPath: DefaultConfigPath,
		CertsDir:   DefaultCertsDir,
		Owner:      DefaultOwner,
	}
}

// ReadConfig returns the current configuration file content, or an empty
// string when the file does not exist yet.
func (s *Service) ReadConfig() (string, error) {
	data, err := os.ReadFile(s.ConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", errdefs.WrapService(err, "failed to read chrony configuration")
	}

	return string(data), nil
}

// ReadKeyPair returns the currently installed NTS key pair, or nil when no
// certificate material is on disk.
func (s *Service) ReadKeyPair() (*KeyPair, error) {
	cert, err := os.ReadFile(filepath.Join(s.CertsDir, certFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, errdefs.WrapService(err, "failed to read NTS certificate")
	}

	key, err := os.ReadFile(filepath.Join(s.CertsDir, keyFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, errdefs.WrapService(err, "failed to read NTS key")
	}

	return &KeyPair{Certificate: string(cert), Key: string(key)}, nil
}

// Apply installs the rendered configuration and certificate material,
// returning whether anything changed on disk. The comparison covers both the
// configuration file and the certificate material, so a certificate rotation
// with an unchanged configuration still reports a change (and therefore
// triggers a daemon restart in the caller). No mutation happens when nothing
// changed.
func (s *Service) Apply(ctx context.Context, config string, pair *KeyPair) (bool, error) {
	changed := false

	err := s.withLock(ctx, func() error {
		current, err := s.ReadConfig()
		if err != nil {
			return err
		}

		currentPair, err := s.ReadKeyPair()
		if err != nil {
			return err
		}

		if current == config && keyPairsEqual(currentPair, pair) {
			return nil
		}

		changed = true

		if err := s.writeKeyPair(pair); err != nil {
			return err
		}

		return s.writeConfig(config)
	})
	if err != nil {
		return false, err
	}

	return changed, nil
}

// withLock runs op while holding the advisory lock next to the config file.
// Adapted flock callback idiom; the lock file is created on first use.
func (s *Service) withLock(ctx context.Context, op func() error) error {
	lockPath := filepath.Join(filepath.Dir(s.ConfigPath), lockFileName)
	fileLock := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, time.Second)
	if err != nil {
		return errdefs.WrapService(err, "failed to acquire config lock "+lockPath)
	}

	if !locked {
		return errdefs.WrapService(errors.Newf("timeout after %v", lockTimeout), "failed to acquire config lock "+lockPath)
	}

	defer func() {
		_ = fileLock.Unlock()
	}()

	return op()
}

func (s *Service) writeConfig(config string) error {
	return s.writeFileAtomic(s.ConfigPath, []byte(config), 0o644, false)
}

// writeKeyPair installs the certificate material, or removes it entirely
// when pair is nil so the daemon leaves secure mode on restart.
func (s *Service) writeKeyPair(pair *KeyPair) error {
	certPath := filepath.Join(s.CertsDir, certFileName)
	keyPath := filepath.Join(s.CertsDir, keyFileName)

	if pair == nil {
		for _, path := range []string{certPath, keyPath} {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return errdefs.WrapService(err, "failed to remove stale certificate file")
			}
		}

		return nil
	}

	if err := s.ensureCertsDir(); err != nil {
		return err
	}

	if err := s.writeFileAtomic(certPath, []byte(pair.Certificate), certFileMode, true); err != nil {
		return err
	}

	return s.writeFileAtomic(keyPath, []byte(pair.Key), certFileMode, true)
}

func (s *Service) ensureCertsDir() error {
	if err := os.MkdirAll(s.CertsDir, certsDirMode); err != nil {
		return errdefs.WrapService(err, "failed to create certificate directory")
	}

	return s.chown(s.CertsDir)
}

// writeFileAtomic writes content to a uniquely named temp file in the target
// directory, then renames it into place. Rename within one filesystem is
// atomic, so readers never observe a partially written file.
func (s *Service) writeFileAtomic(path string, content []byte, mode os.FileMode, owned bool) error {
	tmpPath := path + "." + uuid.NewString() + ".tmp"

	if err := os.WriteFile(tmpPath, content, mode); err != nil {
		return errdefs.WrapService(err, "failed to write "+tmpPath)
	}

	if owned {
		if err := s.chown(tmpPath); err != nil {
			_ = os.Remove(tmpPath)

			return err
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return errdefs.WrapService(err, "failed to install "+path)
	}

	return nil
}

func (s *Service) chown(path string) error {
	if s.Owner == "" {
		return nil
	}

	owner, err := user.Lookup(s.Owner)
	if err != nil {
		return errdefs.WrapService(err, "failed to look up user "+s.Owner)
	}

	uid, err := strconv.Atoi(owner.Uid)
	if err != nil {
		return errdefs.WrapService(err, "unexpected uid for user "+s.Owner)
	}

	gid, err := strconv.Atoi(owner.Gid)
	if err != nil {
		return errdefs.WrapService(err, "unexpected gid for user "+s.Owner)
	}

	if err := os.Chown(path, uid, gid); err != nil {
		return errdefs.WrapService(err, "failed to chown "+path)
	}

	return nil
}

func keyPairsEqual(a, b *KeyPair) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Certificate == b.Certificate && a.Key == b.Key
}

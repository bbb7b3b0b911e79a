// Package mirror reconciles source-tree change events into a destination
// tree and tracks whether that destination is currently usable.
package mirror

import (
	"dirmirror/internal/model"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrMissingRoot      = errors.New("source and destination are required")
	ErrSourceNotDir     = errors.New("source must be a directory")
	ErrSameRoots        = errors.New("source and destination must differ")
	ErrDestInsideSource = errors.New("destination must not be inside source")
)

// Config is fixed for the lifetime of a session.
type Config struct {
	SourceRoot string
	DestRoot   string
	Policy     model.DeletionPolicy
	Verbose    bool
	Marker     string
	IgnoreList []string
}

// NewConfig normalizes both roots and validates them. The source must be an
// existing directory; the destination may be missing, the availability
// monitor creates it.
func NewConfig(src, dst string, policy model.DeletionPolicy, verbose bool) (Config, error) {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return Config{}, ErrMissingRoot
	}

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return Config{}, fmt.Errorf("invalid source path: %w", err)
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return Config{}, fmt.Errorf("invalid destination path: %w", err)
	}

	absSrc, absDst = NormalizeRoot(absSrc), NormalizeRoot(absDst)

	if err := ValidateRoots(absSrc, absDst); err != nil {
		return Config{}, err
	}

	info, err := os.Stat(absSrc)
	if err != nil {
		return Config{}, fmt.Errorf("invalid source %s: %w", absSrc, err)
	}
	if !info.IsDir() {
		return Config{}, fmt.Errorf("%s: %w", absSrc, ErrSourceNotDir)
	}

	if policy == "" {
		policy = model.PolicyMirror
	}

	return Config{
		SourceRoot: absSrc,
		DestRoot:   absDst,
		Policy:     policy,
		Verbose:    verbose,
		Marker:     ".DS_Store",
	}, nil
}

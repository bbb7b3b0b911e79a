package mirror

import "path/filepath"

// Guard refuses deletes aimed at either configured root.
type Guard struct {
	src string
	dst string
}

func NewGuard(cfg Config) Guard {
	return Guard{src: filepath.Clean(cfg.SourceRoot), dst: filepath.Clean(cfg.DestRoot)}
}

func (g Guard) SafeDeleteTarget(path string) bool {
	clean := filepath.Clean(path)
	return clean != g.src && clean != g.dst
}

// ValidateRoots fails when the roots are identical or when the destination
// lives inside the source tree, where every copy would be observed again as
// a source change.
func ValidateRoots(src, dst string) error {
	src, dst = filepath.Clean(src), filepath.Clean(dst)

	if src == dst {
		return ErrSameRoots
	}

	if _, ok := relSuffix(dst, src); ok {
		return ErrDestInsideSource
	}

	return nil
}

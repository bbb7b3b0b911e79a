package mirror

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrOutsideRoot = errors.New("path is not under the root")

const sep = string(os.PathSeparator)

// NormalizeRoot strips trailing separators unless the path is the
// filesystem root itself.
func NormalizeRoot(p string) string {
	for len(p) > 1 && strings.HasSuffix(p, sep) {
		p = p[:len(p)-1]
	}
	return p
}

// Translator maps source paths to destination paths by prefix substitution.
type Translator struct {
	src string
	dst string
}

func NewTranslator(src, dst string) *Translator {
	return &Translator{src: NormalizeRoot(src), dst: NormalizeRoot(dst)}
}

// Translate returns the destination counterpart of the source path p.
func (t *Translator) Translate(p string) (string, error) {
	return swapRoot(p, t.src, t.dst)
}

// Reverse returns the source counterpart of the destination path p.
func (t *Translator) Reverse(p string) (string, error) {
	return swapRoot(p, t.dst, t.src)
}

func swapRoot(p, from, to string) (string, error) {
	rel, ok := relSuffix(p, from)
	if !ok {
		return "", fmt.Errorf("%s under %s: %w", p, from, ErrOutsideRoot)
	}

	if to == sep && rel != "" {
		return rel, nil
	}

	return to + rel, nil
}

// relSuffix returns p with root removed, keeping the leading separator. It
// fails for paths shorter than root or sharing only a name prefix with it.
func relSuffix(p, root string) (string, bool) {
	if len(p) < len(root) || !strings.HasPrefix(p, root) {
		return "", false
	}

	if root == sep {
		if p == sep {
			return "", true
		}
		return p, true
	}

	rel := p[len(root):]
	if rel != "" && !strings.HasPrefix(rel, sep) {
		return "", false
	}

	return rel, true
}

package pipeline

import (
	"path/filepath"
	"strings"
)

// NoiseFilter drops events that must never reach the reconciler: the
// watched root itself, OS bookkeeping artifacts, and user ignore patterns.
type NoiseFilter struct {
	root       string
	marker     string
	ignoreList []string
}

func NewNoiseFilter(root, marker string, ignoreList []string) *NoiseFilter {
	return &NoiseFilter{
		root:       root,
		marker:     marker,
		ignoreList: ignoreList,
	}
}

func (f *NoiseFilter) Allow(path string) bool {
	path = filepath.Clean(path)
	if path == f.root {
		return false
	}

	rel := strings.TrimPrefix(path, f.root)
	if f.marker != "" && strings.Contains(rel, f.marker) {
		return false
	}

	return !shouldIgnore(rel, f.ignoreList)
}

func shouldIgnore(path string, ignoreList []string) bool {
	if len(ignoreList) == 0 {
		return false
	}

	parts := strings.Split(filepath.ToSlash(path), "/")

	for _, part := range parts {
		if part == "" {
			continue
		}
		for _, pattern := range ignoreList {
			matched, err := filepath.Match(pattern, part)
			if err == nil && matched {
				return true
			}
		}
	}

	return false
}

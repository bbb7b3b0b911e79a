// Package fsops holds the filesystem primitives the mirror is built on: a
// metadata-preserving copy of a single entry and a recursive delete.
package fsops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

var ErrUnsupportedType = errors.New("unsupported file type")

const parentDirPerm = 0755

// Local performs copies and deletes against the local filesystem.
type Local struct{}

func (Local) Copy(src, dst string) error {
	return CopyEntry(src, dst)
}

func (Local) Remove(path string) error {
	return RemoveEntry(path)
}

// CopyEntry copies src to dst without following a symlink at src. Regular
// files keep their permission bits, modification time and extended
// attributes; symlinks are recreated as links; directories are created
// without their contents. A missing src is reported with fs.ErrNotExist in
// the chain. Copying onto an up-to-date destination is a no-op.
func CopyEntry(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("failed to stat src: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), parentDirPerm); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		return copySymlink(src, dst, info)
	case mode.IsDir():
		return copyDir(src, dst, info)
	case mode.IsRegular():
		return copyFile(src, dst, info)
	default:
		return fmt.Errorf("%s (%s): %w", src, mode.Type(), ErrUnsupportedType)
	}
}

// RemoveEntry removes path and everything below it. A missing path is not
// an error. A symlink is removed, never its target.
func RemoveEntry(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

func copyFile(src, dst string, info fs.FileInfo) error {
	if upToDate(src, dst, info) {
		return nil
	}

	if err := clearIfType(dst, func(m fs.FileMode) bool { return !m.IsRegular() }); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open src: %w", err)
	}

	defer func(in *os.File) {
		_ = in.Close()
	}(in)

	out, err := os.CreateTemp(filepath.Dir(dst), ".dirmirror-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmp := out.Name()
	defer func() {
		if tmp != "" {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	// Xattrs go first: a read-only mode would make the temp file refuse them.
	if err := copyXattrs(src, tmp); err != nil {
		return fmt.Errorf("failed to copy xattrs: %w", err)
	}

	if err := out.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	// Close before Chtimes: flushing may bump the modification time.
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set timestamps: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	tmp = ""
	return nil
}

func copySymlink(src, dst string, info fs.FileInfo) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("failed to read link: %w", err)
	}

	if current, err := os.Readlink(dst); err == nil && current == target {
		return nil
	}

	if err := clearIfType(dst, fs.FileMode.IsDir); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(dst), ".dirmirror-link-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to reserve temp name: %w", err)
	}
	tmp := f.Name()
	_ = f.Close()
	_ = os.Remove(tmp)

	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("failed to create symlink %s -> %s: %w", tmp, target, err)
	}

	if err := copyXattrs(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to copy xattrs: %w", err)
	}

	if err := setLinkTimes(tmp, info.ModTime()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to set link timestamps: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename temp symlink: %w", err)
	}

	return nil
}

func copyDir(src, dst string, info fs.FileInfo) error {
	if err := clearIfType(dst, func(m fs.FileMode) bool { return !m.IsDir() }); err != nil {
		return err
	}

	// The owner keeps write access so later children can still be copied in.
	perm := info.Mode().Perm() | 0700

	if err := os.Mkdir(dst, perm); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to create dir: %w", err)
	}

	if err := os.Chmod(dst, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := copyXattrs(src, dst); err != nil {
		return fmt.Errorf("failed to copy xattrs: %w", err)
	}

	if err := os.Chtimes(dst, time.Time{}, info.ModTime()); err != nil {
		return fmt.Errorf("failed to set timestamps: %w", err)
	}

	return nil
}

// upToDate reports whether dst already holds src's bytes and metadata.
// Size and mtime alone are not enough: an edit of the same length within
// the filesystem's timestamp resolution leaves both unchanged.
func upToDate(src, dst string, info fs.FileInfo) bool {
	cur, err := os.Lstat(dst)
	if err != nil || !cur.Mode().IsRegular() {
		return false
	}

	if cur.Size() != info.Size() ||
		cur.Mode().Perm() != info.Mode().Perm() ||
		!cur.ModTime().Equal(info.ModTime()) {
		return false
	}

	same, err := sameContent(src, dst)
	return err == nil && same
}

func sameContent(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(fa)

	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(fb)

	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}

		endA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		endB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		switch {
		case endA && endB:
			return true, nil
		case endA != endB:
			return false, nil
		case errA != nil:
			return false, errA
		case errB != nil:
			return false, errB
		}
	}
}

// clearIfType removes whatever sits at path when its type matches, so that
// an entry that changed type (file <-> dir <-> link) can be replaced.
func clearIfType(path string, match func(fs.FileMode) bool) error {
	info, err := os.Lstat(path)
	if err != nil {
		return nil
	}

	if !match(info.Mode()) {
		return nil
	}

	return RemoveEntry(path)
}

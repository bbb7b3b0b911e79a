//go:build linux || darwin

package fsops

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// copyXattrs copies extended attributes from src to dst without following
// symlinks on either side. Filesystems without xattr support, and attributes
// the caller may not set (trusted.*, security.* for non-root, user.* on
// links under Linux), are skipped.
func copyXattrs(src, dst string) error {
	names, err := listXattrs(src)
	if err != nil {
		if skippableXattrErr(err) {
			return nil
		}
		return fmt.Errorf("failed to list xattrs of %s: %w", src, err)
	}

	for _, name := range names {
		value, err := getXattr(src, name)
		if err != nil {
			if skippableXattrErr(err) || errors.Is(err, unix.ENODATA) {
				continue
			}
			return fmt.Errorf("failed to read xattr %s of %s: %w", name, src, err)
		}

		if err := unix.Lsetxattr(dst, name, value, 0); err != nil {
			if skippableXattrErr(err) {
				continue
			}
			return fmt.Errorf("failed to set xattr %s on %s: %w", name, dst, err)
		}
	}

	return nil
}

func listXattrs(path string) ([]string, error) {
	size, err := unix.Llistxattr(path, nil)
	if err != nil || size == 0 {
		return nil, err
	}

	buf := make([]byte, size)
	size, err = unix.Llistxattr(path, buf)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, name := range bytes.Split(buf[:size], []byte{0}) {
		if len(name) > 0 {
			names = append(names, string(name))
		}
	}

	return names, nil
}

func getXattr(path, name string) ([]byte, error) {
	size, err := unix.Lgetxattr(path, name, nil)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}

	size, err = unix.Lgetxattr(path, name, buf)
	if err != nil {
		return nil, err
	}

	return buf[:size], nil
}

func skippableXattrErr(err error) bool {
	return errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.EPERM) ||
		errors.Is(err, unix.EACCES)
}

// setLinkTimes sets the timestamps of the link itself rather than its target.
func setLinkTimes(path string, mtime time.Time) error {
	ts := unix.NsecToTimespec(mtime.UnixNano())
	err := unix.UtimesNanoAt(unix.AT_FDCWD, path, []unix.Timespec{ts, ts}, unix.AT_SYMLINK_NOFOLLOW)
	if errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP) {
		return nil
	}

	return err
}

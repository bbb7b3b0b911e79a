package model

import (
	"strings"
	"time"
)

// EventFlags carries the raw signal reported by a watch source. The
// reconciler never trusts it for decisions; it is kept for logging and for
// sources that want finer-grained filtering.
type EventFlags uint32

const (
	FlagCreate EventFlags = 1 << iota
	FlagWrite
	FlagRemove
	FlagRename
	FlagChmod
)

func (f EventFlags) Has(flag EventFlags) bool {
	return f&flag == flag
}

func (f EventFlags) String() string {
	if f == 0 {
		return "NONE"
	}

	var parts []string
	for _, p := range []struct {
		flag EventFlags
		name string
	}{
		{FlagCreate, "CREATE"},
		{FlagWrite, "WRITE"},
		{FlagRemove, "REMOVE"},
		{FlagRename, "RENAME"},
		{FlagChmod, "CHMOD"},
	} {
		if f.Has(p.flag) {
			parts = append(parts, p.name)
		}
	}

	return strings.Join(parts, "|")
}

type ChangeEvent struct {
	Path  string
	Flags EventFlags
	Time  time.Time
}

// Batch is a group of change events delivered together by a watch source.
type Batch []ChangeEvent

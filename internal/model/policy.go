package model

import (
	"fmt"
	"strings"
)

type DeletionPolicy string

const (
	PolicyMirror DeletionPolicy = "mirror"
	PolicyKeep   DeletionPolicy = "keep"
	PolicyMove   DeletionPolicy = "move"
)

func ParseDeletionPolicy(s string) (DeletionPolicy, error) {
	switch p := DeletionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyMirror, nil
	case PolicyMirror, PolicyKeep, PolicyMove:
		return p, nil
	default:
		return "", fmt.Errorf("unknown deletion policy %q (want mirror, keep or move)", s)
	}
}

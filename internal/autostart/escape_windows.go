//go:build windows

package autostart

import (
	"strings"
	"syscall"
)

// taskCommandLine builds a command line parsed back by CommandLineToArgvW.
func taskCommandLine(execPath string, args []string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, syscall.EscapeArg(execPath))
	for _, a := range args {
		words = append(words, syscall.EscapeArg(a))
	}
	return strings.Join(words, " ")
}

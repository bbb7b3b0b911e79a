//go:build !windows

package autostart

import "strings"

// taskCommandLine builds a command line parsed back by CommandLineToArgvW,
// following the rules of syscall.EscapeArg, which only exists on Windows.
func taskCommandLine(execPath string, args []string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, escapeArg(execPath))
	for _, a := range args {
		words = append(words, escapeArg(a))
	}
	return strings.Join(words, " ")
}

func escapeArg(s string) string {
	if s == "" {
		return `""`
	}

	needsBackslash, hasSpace := false, false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			needsBackslash = true
		case ' ', '\t':
			hasSpace = true
		}
	}

	if !needsBackslash && !hasSpace {
		return s
	}
	if !needsBackslash {
		return `"` + s + `"`
	}

	var b strings.Builder
	if hasSpace {
		b.WriteByte('"')
	}

	// Backslashes are literal unless they precede a quote.
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			slashes++
		case '"':
			for ; slashes > 0; slashes-- {
				b.WriteByte('\\')
			}
			b.WriteByte('\\')
		default:
			slashes = 0
		}
		b.WriteByte(c)
	}

	if hasSpace {
		for ; slashes > 0; slashes-- {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}

	return b.String()
}

// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package redisauth

// escapeMatch escapes redis glob characters so a key prefix can be used
// verbatim in a SCAN match pattern.
func escapeMatch(match string) string {
	start := 0
	var escaped []byte
	for i := 0; i < len(match); i++ {
		switch match[i] {
		case '?', '*', '[', ']', '\\':
			escaped = append(escaped, match[start:i]...)
			escaped = append(escaped, '\\', match[i])
			start = i + 1
		}
	}
	if start == 0 {
		return match
	}
	return string(append(escaped, match[start:]...))
}

// Package azalt implements the line-oriented target protocol spoken by
// the ephemeris tracker: "AZ:<float> ALT:<float>" per line, fire and
// forget.
package azalt

import (
	"strconv"
	"strings"
)

// Command is one parsed target pair, in decimal degrees.
type Command struct {
	AzDeg  float64
	AltDeg float64
}

// ParseLine extracts a Command from one line of text. Both the "AZ:"
// and "ALT:" markers must be present, in that order; otherwise the
// line is silently discarded. Values parse with leading-numeric-prefix
// semantics: a non-numeric payload yields 0.0 rather than an error.
func ParseLine(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	azIdx := strings.Index(line, "AZ:")
	if azIdx < 0 {
		return Command{}, false
	}
	rest := line[azIdx+len("AZ:"):]
	altIdx := strings.Index(rest, "ALT:")
	if altIdx < 0 {
		return Command{}, false
	}
	return Command{
		AzDeg:  prefixFloat(rest[:altIdx]),
		AltDeg: prefixFloat(rest[altIdx+len("ALT:"):]),
	}, true
}

// prefixFloat parses the leading numeric prefix of s, returning 0 when
// no prefix parses.
func prefixFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
	for end < len(s) {
		ch := s[end]
		if ch == '+' || ch == '-' {
			if end != 0 {
				break
			}
		} else if ch == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else if ch < '0' || ch > '9' {
			break
		}
		end++
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

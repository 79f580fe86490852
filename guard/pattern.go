package guard

import (
	"fmt"
	"path"
	"strings"
)

// Pattern is a compiled path pattern.
//
// Syntax, per "/"-separated segment: "**" matches zero or more segments,
// "*" matches any run of characters within a segment, "?" matches one
// character. Everything else is literal. Empty segments are ignored on
// both sides, so "/api//orders/" is the same path as "/api/orders".
type Pattern struct {
	raw  string
	segs []string
}

// CompilePattern compiles p.
func CompilePattern(p string) (Pattern, error) {
	if !strings.HasPrefix(p, "/") {
		return Pattern{}, fmt.Errorf("%w: %q does not start with /", ErrInvalidPattern, p)
	}

	segs := splitPath(p)
	for _, s := range segs {
		if s == "**" {
			continue
		}
		if strings.Contains(s, "**") {
			return Pattern{}, fmt.Errorf("%w: %q: ** must be a whole segment", ErrInvalidPattern, p)
		}
		if strings.ContainsAny(s, `[]\`) {
			return Pattern{}, fmt.Errorf("%w: %q: unsupported character", ErrInvalidPattern, p)
		}
		if _, err := path.Match(s, ""); err != nil {
			return Pattern{}, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, p, err)
		}
	}
	return Pattern{raw: p, segs: segs}, nil
}

// String returns the pattern source.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether urlPath matches the pattern.
func (p Pattern) Match(urlPath string) bool {
	return matchSegments(p.segs, splitPath(urlPath))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			for len(pat) > 0 && pat[0] == "**" {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true
			}
			for i := range len(segs) + 1 {
				if matchSegments(pat, segs[i:]) {
					return true
				}
			}
			return false
		}

		if len(segs) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], segs[0]); !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// hasDotSegment reports whether p contains a "." or ".." segment.
func hasDotSegment(p string) bool {
	for _, s := range splitPath(p) {
		if s == "." || s == ".." {
			return true
		}
	}
	return false
}

package extraction

import (
	"regexp"
	"strings"
)

// hexColorRE matches #RRGGBB not followed by further word characters, so
// #RRGGBBAA and #ABCDEFG are rejected.
var hexColorRE = regexp.MustCompile(`#[0-9A-Fa-f]{6}\b`)

// HexColors returns the distinct hex color tokens in s in order of appearance.
// Duplicates are compared case-insensitively; the first spelling is kept.
func HexColors(s string) []string {
	found := hexColorRE.FindAllString(s, -1)
	if len(found) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(found))
	out := make([]string, 0, len(found))
	for _, c := range found {
		key := strings.ToUpper(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// ColorsFrom builds a color pair from the first two distinct tokens in s.
// With exactly one token the secondary is FallbackSecondaryColor.
func ColorsFrom(s string) (Colors, bool) {
	found := HexColors(s)
	switch len(found) {
	case 0:
		return Colors{}, false
	case 1:
		return Colors{Primary: found[0], Secondary: FallbackSecondaryColor}, true
	default:
		return Colors{Primary: found[0], Secondary: found[1]}, true
	}
}

// IsHexColor reports whether s is exactly one #RRGGBB token.
func IsHexColor(s string) bool {
	return len(s) == 7 && hexColorRE.MatchString(s)
}

// Package release detects drift between the knowledge base's assumed
// "latest version" baseline and the versions observed on authoritative
// release pages.
package release

import (
	"regexp"

	"golang.org/x/mod/semver"
)

// strictVersionRe accepts only a full three-component version. Partial
// or suffixed identifiers (pre-release, build metadata) are excluded.
var strictVersionRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// ValidVersion reports whether s is a strict major.minor.patch version.
func ValidVersion(s string) bool {
	return strictVersionRe.MatchString(s)
}

// CompareVersions orders two strict versions numerically per component:
// negative if a < b, zero if equal, positive if a > b. Both inputs must
// satisfy ValidVersion.
func CompareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

// MaxVersion returns the numerically greatest of the given strict
// versions, or empty for an empty input.
func MaxVersion(versions []string) string {
	max := ""
	for _, v := range versions {
		if max == "" || CompareVersions(v, max) > 0 {
			max = v
		}
	}
	return max
}

// FilterValid deduplicates candidates and silently drops any that are
// not strict three-component versions.
func FilterValid(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, c := range candidates {
		if seen[c] || !ValidVersion(c) {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

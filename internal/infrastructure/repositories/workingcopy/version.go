package workingcopy

import (
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// sortVersionsDescending orders tags newest first. Semantic versions (with or
// without the "v" prefix) come before free-form tags, which keep a reverse
// lexical order among themselves.
func sortVersionsDescending(tags []string) {
	slices.SortStableFunc(tags, func(a, b string) int {
		va, vb := canonicalTag(a), canonicalTag(b)
		switch {
		case va != "" && vb != "":
			return semver.Compare(vb, va)
		case va != "":
			return -1
		case vb != "":
			return 1
		default:
			return strings.Compare(b, a)
		}
	})
}

// canonicalTag returns the semver form of tag, or "" when it is not a version.
func canonicalTag(tag string) string {
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	if !semver.IsValid(tag) {
		return ""
	}
	return tag
}

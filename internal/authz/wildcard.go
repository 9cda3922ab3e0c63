package authz

import "strings"

// DefaultWildcardSuffix is the marker a granted permission name ends with to
// cover every more-specific name sharing its dot-separated prefix.
const DefaultWildcardSuffix = ".*"

// matchWildcard reports whether any dot-prefix of name, suffixed with the
// wildcard marker, is present in the granted set. Prefixes are tried longest
// first: for "users.posts.edit" that is "users.posts.*" then "users.*".
// Matching stops at dot boundaries, so a grant of "a.*" never covers "ab.x".
func matchWildcard(granted map[string]struct{}, name, suffix string) bool {
	segments := strings.Split(name, ".")
	if len(segments) < 2 {
		return false
	}

	for i := len(segments) - 1; i >= 1; i-- {
		candidate := strings.Join(segments[:i], ".") + suffix
		if _, ok := granted[candidate]; ok {
			return true
		}
	}
	return false
}

package crypt

import "strings"

// FragmentMarker is the fixed token separating the page URL from the
// ciphertext. Its length is part of the budget engine's base overhead.
const FragmentMarker = "#shared="

// BuildShareURL assembles the final link: <origin><path>#shared=<ciphertext>.
func BuildShareURL(origin, path, ciphertext string) string {
	var b strings.Builder
	b.Grow(len(origin) + len(path) + len(FragmentMarker) + len(ciphertext))
	b.WriteString(origin)
	b.WriteString(path)
	b.WriteString(FragmentMarker)
	b.WriteString(ciphertext)
	return b.String()
}

// ParseShareURL extracts the ciphertext from a share link, for re-sharing an
// inbound link. ok is false when the link carries no share fragment.
func ParseShareURL(link string) (ciphertext string, ok bool) {
	idx := strings.Index(link, FragmentMarker)
	if idx < 0 {
		return "", false
	}
	ciphertext = link[idx+len(FragmentMarker):]
	if ciphertext == "" {
		return "", false
	}
	return ciphertext, true
}

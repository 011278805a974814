// Package manifest holds the captured playlist set for one piece of content.
package manifest

import "sort"

// Set maps a human label (usually a quality hint) to a playlist URL.
type Set map[string]string

// Empty reports whether the set holds no playlists.
func (s Set) Empty() bool {
	return len(s) == 0
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Labels returns the labels in lexical order.
func (s Set) Labels() []string {
	labels := make([]string, 0, len(s))
	for k := range s {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

package relay

import "strings"

// MergeText folds a streamed fragment into the accumulated reply. Gateways
// may resend overlapping deltas or whole snapshots, so a fragment that is a
// prefix, suffix or superstring of the current text replaces it with the
// longer of the two; otherwise only the part past the longest overlap between
// the end of current and the start of next is appended.
func MergeText(current, next string) string {
	if next == "" || next == current {
		return current
	}
	if current == "" {
		return next
	}
	if strings.Contains(next, current) {
		return next
	}
	if strings.Contains(current, next) {
		return current
	}

	// The overlap cannot exceed the shorter string, which bounds the scan by
	// the fragment length for long replies.
	maxOverlap := min(len(current), len(next))
	for i := maxOverlap; i > 0; i-- {
		if current[len(current)-i:] == next[:i] {
			return current + next[i:]
		}
	}
	return current + next
}

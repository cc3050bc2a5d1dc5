//go:build unix && !linux

package proc

// descendants is not available without /proc; the process group signal
// covers children that stay in the group.
func descendants(int) []int { return nil }

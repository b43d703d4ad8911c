//go:build !linux

package logger

// isTerminal conservatively reports false on non-Linux platforms; squish
// only runs its mount helpers on Linux and color output is cosmetic.
func isTerminal(fd uintptr) bool {
	return false
}

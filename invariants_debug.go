//go:build debug

package tavla

// Board invariants are verified after every move when built with -tags debug.
const checkInvariants = true

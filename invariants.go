//go:build !debug

package tavla

const checkInvariants = false

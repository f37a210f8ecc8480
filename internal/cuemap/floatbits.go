package cuemap

import "math"

// float32Bits/float32FromBits let Record store its derived salience as an
// atomically-updated uint32 without a mutex.
func float32Bits(v float32) uint32   { return math.Float32bits(v) }
func float32FromBits(b uint32) float32 { return math.Float32frombits(b) }

// Package padding implements bucketized length-hiding padding with a
// 2-byte length prefix.
//
// Pad places a big-endian length prefix and the plaintext at the front of a
// buffer sized to the smallest bucket that fits, filling the remainder with
// random bytes. Unpad reverses this and rejects anything whose declared
// length doesn't fit the buffer it arrived in.
package padding

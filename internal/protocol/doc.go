// Package protocol owns the binary wire contract for request records.
//
// Ownership boundary:
// - frame/header primitives (frame)
// - tlv payload primitives (tlv)
// - required field checks (schema)
// - record to frame mapping and back (Encoder, Decode)
package protocol

// Package codec owns the byte-level text codecs of the pipeline.
//
// Ownership boundary:
// - strict hexadecimal decode
// - base64 encode and strict decode (standard alphabet, '=' padding)
//
// Every decode is atomic: on failure no partial output is returned.
package codec

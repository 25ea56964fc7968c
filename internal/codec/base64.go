package codec

import (
	"encoding/base64"

	"github.com/danmuck/exireq/internal/fault"
)

const (
	base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	base64Pad      = '='
	invalidSextet  = 0xFF
)

// decodeTable maps every byte value to its 6-bit value, or invalidSextet.
var decodeTable = buildDecodeTable()

func buildDecodeTable() [256]byte {
	var table [256]byte
	for i := range table {
		table[i] = invalidSextet
	}
	for i := 0; i < len(base64Alphabet); i++ {
		table[base64Alphabet[i]] = byte(i)
	}
	return table
}

// Base64Encode renders b with the standard alphabet and '=' padding. The
// result always has length 4*ceil(len(b)/3).
func Base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64EncodedLen is the length Base64Encode produces for n input bytes.
func Base64EncodedLen(n int) int {
	return 4 * ((n + 2) / 3)
}

// Base64Decode converts standard base64 text back into bytes.
//
// The length must be a multiple of 4. '=' is only accepted as the last one
// or two characters; every other byte outside the alphabet, including
// whitespace, fails the whole call. Empty text decodes to an empty slice.
func Base64Decode(text string) ([]byte, error) {
	n := len(text)
	if n == 0 {
		return []byte{}, nil
	}
	if n%4 != 0 {
		return nil, fault.Newf(fault.KindFormat, "", "base64 text length %d is not a multiple of 4", n)
	}

	pad := 0
	if text[n-1] == base64Pad {
		pad = 1
		if text[n-2] == base64Pad {
			pad = 2
		}
	}

	out := make([]byte, n/4*3)
	j := 0
	for i := 0; i < n; i += 4 {
		var quantum uint32
		for k := 0; k < 4; k++ {
			c := text[i+k]
			v := decodeTable[c]
			if c == base64Pad && i+k >= n-pad {
				v = 0
			} else if v == invalidSextet {
				return nil, fault.Newf(fault.KindFormat, "", "invalid base64 character %q at offset %d", c, i+k)
			}
			quantum = quantum<<6 | uint32(v)
		}
		out[j] = byte(quantum >> 16)
		out[j+1] = byte(quantum >> 8)
		out[j+2] = byte(quantum)
		j += 3
	}
	return out[:len(out)-pad], nil
}

package codec

import (
	"encoding/hex"
	"errors"

	"github.com/danmuck/exireq/internal/fault"
)

// HexDecode converts base-16 text into bytes. The input must have even
// length and only contain 0-9, a-f, A-F. The result has exactly len/2 bytes.
func HexDecode(text string) ([]byte, error) {
	if len(text)%2 != 0 {
		return nil, fault.Newf(fault.KindFormat, "", "hex text has odd length %d", len(text))
	}
	out, err := hex.DecodeString(text)
	if err != nil {
		var invalid hex.InvalidByteError
		if errors.As(err, &invalid) {
			return nil, fault.Newf(fault.KindFormat, "", "invalid hex character %q", rune(invalid))
		}
		return nil, fault.Wrap(fault.KindFormat, "", "invalid hex text", err)
	}
	return out, nil
}

// HexEncode renders b as lowercase hex.
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

package codec

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/danmuck/exireq/internal/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64RoundTripAllResidues(t *testing.T) {
	for n := 0; n <= 64; n++ {
		in := make([]byte, n)
		for i := range in {
			in[i] = byte(i*37 + n)
		}
		text := Base64Encode(in)
		require.Len(t, text, Base64EncodedLen(n), "n=%d", n)

		out, err := Base64Decode(text)
		require.NoError(t, err, "n=%d text=%q", n, text)
		require.True(t, bytes.Equal(in, out), "n=%d round-trip mismatch", n)
	}
}

func TestBase64EncodePadding(t *testing.T) {
	assert.Equal(t, "", Base64Encode(nil))
	assert.Equal(t, "AQ==", Base64Encode([]byte{1}))
	assert.Equal(t, "AQI=", Base64Encode([]byte{1, 2}))
	assert.Equal(t, "AQID", Base64Encode([]byte{1, 2, 3}))
}

func TestBase64DecodeMatchesStdlibOnValidInput(t *testing.T) {
	in := []byte("certificate payload \x00\xff\x10")
	text := base64.StdEncoding.EncodeToString(in)
	out, err := Base64Decode(text)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBase64DecodeRejects(t *testing.T) {
	cases := map[string]string{
		"bad length":    "QUJD=",
		"pad in middle": "QU=DQUJD",
		"three pads":    "Q===",
		"all pads":      "====",
		"whitespace":    "QUJ\nQUJD",
		"url alphabet":  "QU-_",
		"non ascii":     "QUJ\xc3",
		"pad then data": "QQ==QUJD",
	}
	for name, text := range cases {
		out, err := Base64Decode(text)
		require.Error(t, err, name)
		assert.Nil(t, out, name)
		assert.True(t, fault.IsKind(err, fault.KindFormat), "%s: %v", name, err)
	}
}

func TestBase64DecodeTableShape(t *testing.T) {
	valid := 0
	for _, v := range decodeTable {
		if v != invalidSextet {
			valid++
		}
	}
	assert.Equal(t, 64, valid)
	assert.Equal(t, byte(invalidSextet), decodeTable['='])
	assert.Equal(t, byte(63), decodeTable['/'])
}

func TestHexDecode(t *testing.T) {
	out, err := HexDecode("0102030405060708")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out)

	out, err = HexDecode("aBcDeF")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0xcd, 0xef}, out)

	out, err = HexDecode("")
	require.NoError(t, err)
	assert.Len(t, out, 0)
}

func TestHexDecodeValidLengths(t *testing.T) {
	for n := 0; n <= 32; n += 2 {
		text := HexEncode(bytes.Repeat([]byte{0x5a}, n/2))
		out, err := HexDecode(text)
		require.NoError(t, err)
		assert.Len(t, out, n/2)
	}
}

func TestHexDecodeRejects(t *testing.T) {
	for _, text := range []string{"0", "abc", "0g", "zz", "01 2", "0102030405060x"} {
		out, err := HexDecode(text)
		require.Error(t, err, text)
		assert.Nil(t, out, text)
		assert.True(t, fault.IsKind(err, fault.KindFormat), "%q: %v", text, err)
	}
}

package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(fields ...[]byte) []byte {
	var buf []byte
	argc := make([]byte, 4)
	binary.LittleEndian.PutUint32(argc, uint32(len(fields)))
	buf = append(buf, argc...)
	for _, f := range fields {
		l := make([]byte, 4)
		binary.LittleEndian.PutUint32(l, uint32(len(f)))
		buf = append(buf, l...)
		buf = append(buf, f...)
	}
	return buf
}

func TestParseRequestGet(t *testing.T) {
	buf := frame([]byte("get"), []byte("mykey"))
	cmd, consumed, err := ParseRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	assert.Equal(t, "GET", cmd.Name)
	assert.Equal(t, []byte("mykey"), cmd.Key())
}

func TestParseRequestSet(t *testing.T) {
	buf := frame([]byte("SET"), []byte("k"), []byte("v"))
	cmd, _, err := ParseRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, "SET", cmd.Name)
	assert.Equal(t, []byte("k"), cmd.Key())
	assert.Equal(t, []byte("v"), cmd.Value())
}

func TestParseRequestKeys(t *testing.T) {
	buf := frame([]byte("KEYS"))
	cmd, _, err := ParseRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, "KEYS", cmd.Name)
}

func TestParseRequestIncomplete(t *testing.T) {
	buf := frame([]byte("GET"), []byte("mykey"))
	_, _, err := ParseRequest(buf[:len(buf)-2])
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseRequestUnknownCommand(t *testing.T) {
	buf := frame([]byte("NOPE"), []byte("x"))
	_, consumed, err := ParseRequest(buf)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, len(buf), consumed)
}

func TestParseRequestWrongArgCount(t *testing.T) {
	buf := frame([]byte("SET"), []byte("k"))
	_, _, err := ParseRequest(buf)
	assert.ErrorIs(t, err, ErrWrongArgCount)
}

func TestParseRequestOversizedField(t *testing.T) {
	big := make([]byte, MaxMessageSize+1)
	buf := frame([]byte("SET"), []byte("k"), big)
	_, _, err := ParseRequest(buf)
	assert.ErrorIs(t, err, ErrFraming)
}

func TestEncodeNullRoundTrip(t *testing.T) {
	out := Encode(Null())
	total := binary.LittleEndian.Uint32(out[0:4])
	assert.Equal(t, uint32(1), total)
	assert.Equal(t, byte(KindNull), out[4])
}

func TestEncodeIntegerRoundTrip(t *testing.T) {
	out := Encode(Integer(-42))
	total := binary.LittleEndian.Uint32(out[0:4])
	assert.Equal(t, uint32(9), total)
	assert.Equal(t, byte(KindInteger), out[4])
	got := int64(binary.LittleEndian.Uint64(out[5:13]))
	assert.Equal(t, int64(-42), got)
}

func TestEncodeStringRoundTrip(t *testing.T) {
	out := Encode(String([]byte("hello")))
	assert.Equal(t, byte(KindString), out[4])
	l := binary.LittleEndian.Uint32(out[5:9])
	assert.Equal(t, uint32(5), l)
	assert.Equal(t, "hello", string(out[9:14]))
}

func TestEncodeErrRoundTrip(t *testing.T) {
	out := Encode(ErrValue(7, "bad"))
	assert.Equal(t, byte(KindErr), out[4])
	code := binary.LittleEndian.Uint32(out[5:9])
	assert.Equal(t, uint32(7), code)
	msgLen := binary.LittleEndian.Uint32(out[9:13])
	assert.Equal(t, uint32(3), msgLen)
	assert.Equal(t, "bad", string(out[13:16]))
}

func TestEncodeArrayOfStrings(t *testing.T) {
	v := Array([]Value{String([]byte("a")), String([]byte("bb"))})
	out := Encode(v)
	assert.Equal(t, byte(KindArray), out[4])
	n := binary.LittleEndian.Uint32(out[5:9])
	assert.Equal(t, uint32(2), n)
}

package wire

import (
	"bytes"
	"encoding/binary"
)

// Kind tags the payload that follows a response's length prefix.
type Kind byte

const (
	KindNull    Kind = 0
	KindErr     Kind = 1
	KindInteger Kind = 2
	KindString  Kind = 3
	KindArray   Kind = 4
)

// Value is a response value: exactly one of its fields is meaningful,
// selected by Kind. Array values nest further Values.
type Value struct {
	Kind    Kind
	ErrCode uint32
	ErrMsg  string
	Int     int64
	Str     []byte
	Items   []Value
}

// Null builds a Null response value.
func Null() Value { return Value{Kind: KindNull} }

// ErrValue builds an Err response value.
func ErrValue(code uint32, msg string) Value {
	return Value{Kind: KindErr, ErrCode: code, ErrMsg: msg}
}

// Integer builds an Integer response value.
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }

// String builds a String response value.
func String(s []byte) Value { return Value{Kind: KindString, Str: s} }

// Array builds an Array response value.
func Array(items []Value) Value { return Value{Kind: KindArray, Items: items} }

// Encode serializes v as a complete response frame: a little-endian
// u32 total length followed by the tagged payload.
func Encode(v Value) []byte {
	var body bytes.Buffer
	writeValue(&body, v)

	out := make([]byte, 4+body.Len())
	binary.LittleEndian.PutUint32(out[0:4], uint32(body.Len()))
	copy(out[4:], body.Bytes())
	return out
}

func writeValue(buf *bytes.Buffer, v Value) {
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindNull:
	case KindErr:
		writeU32(buf, v.ErrCode)
		writeU32(buf, uint32(len(v.ErrMsg)))
		buf.WriteString(v.ErrMsg)
	case KindInteger:
		writeI64(buf, v.Int)
	case KindString:
		writeU32(buf, uint32(len(v.Str)))
		buf.Write(v.Str)
	case KindArray:
		writeU32(buf, uint32(len(v.Items)))
		for _, item := range v.Items {
			writeValue(buf, item)
		}
	}
}

func writeU32(buf *bytes.Buffer, n uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], n)
	buf.Write(tmp[:])
}

func writeI64(buf *bytes.Buffer, n int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(n))
	buf.Write(tmp[:])
}

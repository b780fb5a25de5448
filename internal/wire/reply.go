package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// Tag is the one-byte discriminant that prefixes every encoded value.
type Tag byte

const (
	TagNil Tag = 0
	TagErr Tag = 1
	TagStr Tag = 2
	TagInt Tag = 3
	TagDbl Tag = 4
	TagArr Tag = 5
)

// WriteNil appends a bare Nil tag.
func WriteNil(b *Buffer) {
	b.AppendByte(byte(TagNil))
}

// WriteErr appends a tagged error value.
func WriteErr(b *Buffer, msg string) {
	b.AppendByte(byte(TagErr))
	b.AppendU32(uint32(len(msg)))
	b.Append([]byte(msg))
}

// WriteStr appends a tagged string value.
func WriteStr(b *Buffer, s string) {
	b.AppendByte(byte(TagStr))
	b.AppendU32(uint32(len(s)))
	b.Append([]byte(s))
}

// WriteInt appends a tagged int64 value.
func WriteInt(b *Buffer, v int64) {
	b.AppendByte(byte(TagInt))
	b.AppendI64(v)
}

// WriteDbl appends a tagged float64 value.
func WriteDbl(b *Buffer, v float64) {
	b.AppendByte(byte(TagDbl))
	b.AppendF64(v)
}

// Value is a decoded reply, used by the demo client and by tests that
// round-trip encoded replies.
type Value struct {
	Tag Tag
	Str string
	Int int64
	Dbl float64
	Arr []Value
}

// ErrShortRead is returned by Decode when data does not contain a complete
// value (the caller should wait for more bytes).
var ErrShortRead = errors.New("wire: short read")

// Decode parses one tagged value from data, returning the value and the
// number of bytes consumed.
func Decode(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, ErrShortRead
	}
	tag := Tag(data[0])
	switch tag {
	case TagNil:
		return Value{Tag: TagNil}, 1, nil
	case TagInt:
		if len(data) < 9 {
			return Value{}, 0, ErrShortRead
		}
		v := int64(binary.LittleEndian.Uint64(data[1:9]))
		return Value{Tag: TagInt, Int: v}, 9, nil
	case TagDbl:
		if len(data) < 9 {
			return Value{}, 0, ErrShortRead
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(data[1:9]))
		return Value{Tag: TagDbl, Dbl: v}, 9, nil
	case TagStr, TagErr:
		if len(data) < 5 {
			return Value{}, 0, ErrShortRead
		}
		n := binary.LittleEndian.Uint32(data[1:5])
		if uint32(len(data)-5) < n {
			return Value{}, 0, ErrShortRead
		}
		s := string(data[5 : 5+n])
		return Value{Tag: tag, Str: s}, 5 + int(n), nil
	case TagArr:
		if len(data) < 5 {
			return Value{}, 0, ErrShortRead
		}
		n := binary.LittleEndian.Uint32(data[1:5])
		pos := 5
		items := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			v, used, err := Decode(data[pos:])
			if err != nil {
				return Value{}, 0, err
			}
			items = append(items, v)
			pos += used
		}
		return Value{Tag: TagArr, Arr: items}, pos, nil
	default:
		return Value{}, 0, errors.New("wire: unknown tag")
	}
}

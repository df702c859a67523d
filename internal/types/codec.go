package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
)

var bigZero = big.NewInt(0)

// Encode produces the canonical byte representation of v. Two Values that
// are Equal always Encode to identical bytes, and conversely (collisions
// aside) — this underpins storage's normalized row-per-element layout and
// the batch idempotency fingerprint in internal/store.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(v.Type))
	if v.IsArray {
		buf.WriteByte(1)
		binary.Write(&buf, binary.BigEndian, uint32(len(v.Elements)))
		for _, e := range v.Elements {
			encodeScalar(&buf, v.Type, e)
		}
	} else {
		buf.WriteByte(0)
		encodeScalar(&buf, v.Type, v.Scalar)
	}
	return buf.Bytes()
}

func encodeScalar(buf *bytes.Buffer, t BasicType, s Scalar) {
	switch t {
	case BOOLEAN:
		if s.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case INTEGER:
		binary.Write(buf, binary.BigEndian, s.Int)
	case FLOAT:
		binary.Write(buf, binary.BigEndian, math.Float64bits(s.Float))
	case STRING:
		b := []byte(s.Str)
		binary.Write(buf, binary.BigEndian, uint32(len(b)))
		buf.Write(b)
	case DECIMAL:
		unscaled := s.Decimal.Unscaled
		if unscaled == nil {
			unscaled = bigZero
		}
		binary.Write(buf, binary.BigEndian, s.Decimal.Scale)
		bts := unscaled.Bytes()
		sign := byte(0)
		if unscaled.Sign() < 0 {
			sign = 1
		}
		buf.WriteByte(sign)
		binary.Write(buf, binary.BigEndian, uint32(len(bts)))
		buf.Write(bts)
	case DATE:
		binary.Write(buf, binary.BigEndian, s.DateDays)
	case DATETIME:
		binary.Write(buf, binary.BigEndian, s.DateTime)
	}
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	typeByte, err := r.ReadByte()
	if err != nil {
		return Value{}, fmt.Errorf("decode: %w", err)
	}
	t := BasicType(typeByte)
	isArrayByte, err := r.ReadByte()
	if err != nil {
		return Value{}, fmt.Errorf("decode: %w", err)
	}
	if isArrayByte == 0 {
		s, err := decodeScalar(r, t)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Scalar: s}, nil
	}
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return Value{}, fmt.Errorf("decode array length: %w", err)
	}
	elems := make([]Scalar, n)
	for i := range elems {
		s, err := decodeScalar(r, t)
		if err != nil {
			return Value{}, err
		}
		elems[i] = s
	}
	return Value{Type: t, IsArray: true, Elements: elems}, nil
}

func decodeScalar(r *bytes.Reader, t BasicType) (Scalar, error) {
	switch t {
	case BOOLEAN:
		b, err := r.ReadByte()
		if err != nil {
			return Scalar{}, err
		}
		return Scalar{Bool: b != 0}, nil
	case INTEGER:
		var i int64
		if err := binary.Read(r, binary.BigEndian, &i); err != nil {
			return Scalar{}, err
		}
		return Scalar{Int: i}, nil
	case FLOAT:
		var bits uint64
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return Scalar{}, err
		}
		return Scalar{Float: math.Float64frombits(bits)}, nil
	case STRING:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Scalar{}, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return Scalar{}, err
		}
		return Scalar{Str: string(b)}, nil
	case DECIMAL:
		var scale int32
		if err := binary.Read(r, binary.BigEndian, &scale); err != nil {
			return Scalar{}, err
		}
		sign, err := r.ReadByte()
		if err != nil {
			return Scalar{}, err
		}
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Scalar{}, err
		}
		bts := make([]byte, n)
		if _, err := io.ReadFull(r, bts); err != nil {
			return Scalar{}, err
		}
		unscaled := new(big.Int).SetBytes(bts)
		if sign == 1 {
			unscaled.Neg(unscaled)
		}
		return Scalar{Decimal: Decimal{Unscaled: unscaled, Scale: scale}}, nil
	case DATE:
		var d int32
		if err := binary.Read(r, binary.BigEndian, &d); err != nil {
			return Scalar{}, err
		}
		return Scalar{DateDays: d}, nil
	case DATETIME:
		var d int64
		if err := binary.Read(r, binary.BigEndian, &d); err != nil {
			return Scalar{}, err
		}
		return Scalar{DateTime: d}, nil
	default:
		return Scalar{}, fmt.Errorf("decode: unknown basic type %d", int(t))
	}
}

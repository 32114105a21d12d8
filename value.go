package dbf

import (
	"fmt"
	"strconv"
	"time"
)

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindText
	KindInteger // raw 32 bit integer, I fields only
	KindFloat   // raw single precision, F fields only
	KindNumber  // double precision
	KindBoolean
	KindDate
	KindBytes
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindBytes:
		return "bytes"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged union over the values a field can hold. The physical
// reader may produce any kind; decoded records only hold Null, Text, Number,
// Boolean and Date. The zero Value is Null.
type Value struct {
	kind ValueKind
	str  string
	i32  int32
	f32  float32
	num  float64
	b    bool
	t    time.Time
	raw  []byte
}

func Null() Value                { return Value{} }
func Text(s string) Value        { return Value{kind: KindText, str: s} }
func Integer(i int32) Value      { return Value{kind: KindInteger, i32: i} }
func Float(f float32) Value      { return Value{kind: KindFloat, f32: f} }
func Number(f float64) Value     { return Value{kind: KindNumber, num: f} }
func Boolean(b bool) Value       { return Value{kind: KindBoolean, b: b} }
func Date(t time.Time) Value     { return Value{kind: KindDate, t: t} }
func Bytes(raw []byte) Value     { return Value{kind: KindBytes, raw: raw} }
func (v Value) Kind() ValueKind  { return v.kind }
func (v Value) IsNull() bool     { return v.kind == KindNull }
func (v Value) Text() string     { return v.str }
func (v Value) Integer() int32   { return v.i32 }
func (v Value) Float() float32   { return v.f32 }
func (v Value) Number() float64  { return v.num }
func (v Value) Boolean() bool    { return v.b }
func (v Value) Date() time.Time  { return v.t }
func (v Value) RawBytes() []byte { return v.raw }

// Any returns the Go value held by v, or nil for Null.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.str
	case KindInteger:
		return v.i32
	case KindFloat:
		return v.f32
	case KindNumber:
		return v.num
	case KindBoolean:
		return v.b
	case KindDate:
		return v.t
	case KindBytes:
		return v.raw
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "<null>"
	case KindText:
		return v.str
	case KindInteger:
		return strconv.FormatInt(int64(v.i32), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.f32), 'g', -1, 32)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.t.Format("2006-01-02")
	}
	return fmt.Sprintf("%x", v.raw)
}

// Record is one decoded row aligned to the Schema columns.
type Record []Value

package dbf

import (
	"errors"
	"fmt"
	"io"
)

// Decode reads the next record into out and returns it. out should come
// from NewRecord; a nil out is allocated. Cells whose field is absent in the
// record keep the value they had in out. Decode writes only to schema
// positions and never past len(out).
//
// At the end of data Decode returns (nil, nil), and keeps doing so. A
// framing failure leaves the session errored: later calls return
// ErrSessionErrored and the session must be closed. A field coercion
// failure consumes the offending record only; it is reported by HasError
// but decoding may continue. The contents of out are
// unspecified after an error.
func (rd *Reader) Decode(out Record) (Record, error) {
	if rd.closed {
		return nil, ErrClosed
	}
	if rd.broken {
		return nil, ErrSessionErrored
	}
	if rd.done {
		return nil, nil
	}
	rd.started = true

	raw, err := rd.nextRawRecord()
	if err != nil {
		if err == io.EOF {
			rd.done = true
			return nil, nil
		}
		var fe *fieldError
		if errors.As(err, &fe) {
			return nil, rd.coercionErr(fe.index, fe.err)
		}
		rd.broken = true
		rd.errored = true
		rd.log.Error().Err(err).Msg("unable to read row")
		return nil, &DecodeError{Kind: DecodeCorrupt, Field: -1, Err: err}
	}

	if out == nil {
		out = rd.NewRecord()
	}
	for i, f := range rd.fields {
		slot := rd.slots[i]
		if slot < 0 || slot >= len(out) {
			continue
		}
		v := raw[i]
		switch f.Type {
		case FieldMemo:
			if !v.IsNull() {
				out[slot] = v
			}
		case FieldCharacter:
			if v.Kind() != KindText {
				return nil, rd.mismatch(i, KindText, v)
			}
			out[slot] = Text(rtrimPad(v.Text()))
		case FieldInteger:
			if v.IsNull() {
				continue
			}
			if v.Kind() != KindInteger {
				return nil, rd.mismatch(i, KindInteger, v)
			}
			out[slot] = Number(float64(v.Integer()))
		case FieldNumeric:
			if v.IsNull() {
				continue
			}
			if v.Kind() != KindNumber {
				return nil, rd.mismatch(i, KindNumber, v)
			}
			out[slot] = v
		case FieldFloat:
			if v.IsNull() {
				continue
			}
			if v.Kind() != KindFloat {
				return nil, rd.mismatch(i, KindFloat, v)
			}
			out[slot] = Number(float64(v.Float()))
		case FieldLogical:
			if v.IsNull() {
				continue
			}
			if v.Kind() != KindBoolean {
				return nil, rd.mismatch(i, KindBoolean, v)
			}
			out[slot] = v
		case FieldDate:
			if v.IsNull() {
				continue
			}
			if v.Kind() != KindDate {
				return nil, rd.mismatch(i, KindDate, v)
			}
			out[slot] = v
		}
	}
	return out, nil
}

func (rd *Reader) mismatch(field int, want ValueKind, got Value) error {
	return rd.coercionErr(field, fmt.Errorf("expected %s value, got %s", want, got.Kind()))
}

func (rd *Reader) coercionErr(field int, err error) error {
	rd.errored = true
	rd.log.Error().Err(err).Int("field", field).Str("name", rd.fields[field].Name).Msg("error parsing field")
	return &DecodeError{Kind: DecodeFieldCoercion, Field: field, Name: rd.fields[field].Name, Err: err}
}

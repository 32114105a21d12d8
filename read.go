package dbf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	recordActive  = ' '
	recordDeleted = '*'
)

// fieldError reports a field whose bytes could not be parsed. The record it
// belongs to has been consumed in full.
type fieldError struct {
	index int
	err   error
}

func (e *fieldError) Error() string { return fmt.Sprintf("field %d: %v", e.index, e.err) }
func (e *fieldError) Unwrap() error { return e.err }

// nextRawRecord reads the next live physical record. Deleted records are
// skipped. It returns io.EOF at the end of data.
func (rd *Reader) nextRawRecord() ([]Value, error) {
	for {
		if rd.read >= rd.header.NumRecords {
			return nil, io.EOF
		}
		flag, err := rd.r.ReadByte()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if flag == EOF {
			return nil, io.EOF
		}
		if flag != recordActive && flag != recordDeleted {
			return nil, fmt.Errorf("record %d: invalid deletion flag %#02x", rd.read+1, flag)
		}
		if _, err := io.ReadFull(rd.r, rd.buf); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("record %d truncated: %w", rd.read+1, err)
		}
		rd.read++
		if flag == recordDeleted {
			continue
		}
		return rd.parseRecord(rd.buf)
	}
}

func (rd *Reader) parseRecord(data []byte) ([]Value, error) {
	values := make([]Value, len(rd.fields))
	pos := 0
	for i, f := range rd.fields {
		raw := data[pos : pos+f.Length]
		pos += f.Length
		v, err := rd.parseField(f, raw)
		if err != nil {
			return nil, &fieldError{index: i, err: err}
		}
		values[i] = v
	}
	return values, nil
}

func (rd *Reader) parseField(f FieldDescriptor, raw []byte) (Value, error) {
	switch f.Type {
	case FieldCharacter:
		return Text(rd.decoder.ConvertString(string(raw))), nil
	case FieldMemo:
		s := trimPad(string(raw))
		if s == "" {
			return Null(), nil
		}
		return Text(rd.decoder.ConvertString(s)), nil
	case FieldNumeric, FieldFloat:
		s := trimPad(string(raw))
		if s == "" || strings.Trim(s, "?*") == "" {
			return Null(), nil
		}
		if f.Type == FieldFloat {
			num, err := parseDecimal(s, 32)
			if err != nil {
				return Value{}, err
			}
			return Float(float32(num)), nil
		}
		num, err := parseDecimal(s, 64)
		if err != nil {
			return Value{}, err
		}
		return Number(num), nil
	case FieldInteger:
		if len(raw) != 4 {
			return Value{}, fmt.Errorf("integer field has length %d, want 4", len(raw))
		}
		return Integer(int32(binary.LittleEndian.Uint32(raw))), nil
	case FieldLogical:
		if len(raw) == 0 {
			return Null(), nil
		}
		switch raw[0] {
		case 'Y', 'y', 'T', 't':
			return Boolean(true), nil
		case 'N', 'n', 'F', 'f':
			return Boolean(false), nil
		}
		return Null(), nil
	case FieldDate:
		s := trimPad(string(raw))
		if s == "" || strings.Trim(s, "0") == "" {
			return Null(), nil
		}
		t, err := time.Parse("20060102", s)
		if err != nil {
			rd.log.Debug().Str("field", f.Name).Str("value", s).Msg("unparseable date read as null")
			return Null(), nil
		}
		return Date(t), nil
	}
	b := make([]byte, len(raw))
	copy(b, raw)
	return Bytes(b), nil
}

// parseDecimal parses the ASCII text of an N or F field. Infinities and NaN
// are not decimal numbers and are rejected.
func parseDecimal(s string, bitSize int) (float64, error) {
	num, err := strconv.ParseFloat(s, bitSize)
	if err != nil {
		return 0, err
	}
	if math.IsInf(num, 0) || math.IsNaN(num) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return num, nil
}

// trimPad strips the blanks and NULs that pad fixed width storage.
func trimPad(s string) string {
	return strings.Trim(s, " \x00")
}

func rtrimPad(s string) string {
	return strings.TrimRight(s, " \x00")
}

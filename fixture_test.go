package dbf

import (
	"bytes"
	"encoding/binary"
)

type testField struct {
	name     string
	typ      byte
	length   int
	decimals int
}

// fixture builds DBF bytes in memory. Record values are padded with spaces
// to the field length.
type fixture struct {
	version     byte
	driver      byte
	fields      []testField
	records     [][]string
	deleted     map[int]bool
	numRecords  int
	noEOF       bool
	extraHeader int
}

func (fx fixture) bytes() []byte {
	var buf bytes.Buffer
	version := fx.version
	if version == 0 {
		version = 0x03
	}
	numRecords := fx.numRecords
	if numRecords == 0 {
		numRecords = len(fx.records)
	}
	recordLength := 1
	for _, f := range fx.fields {
		recordLength += f.length
	}
	h := Header{
		Version:          version,
		LastUpdateYear:   124,
		LastUpdateMonth:  1,
		LastUpdateDay:    31,
		NumRecords:       uint32(numRecords),
		HeaderLength:     uint16(headerSize + descriptorSize*len(fx.fields) + 1 + fx.extraHeader),
		RecordLength:     uint16(recordLength),
		LanguageDriverID: fx.driver,
	}
	_ = binary.Write(&buf, binary.LittleEndian, h)
	for _, f := range fx.fields {
		var raw rawField
		copy(raw.Name[:], f.name)
		raw.Type = f.typ
		raw.Length = byte(f.length)
		raw.Decimal = byte(f.decimals)
		_ = binary.Write(&buf, binary.LittleEndian, raw)
	}
	buf.WriteByte(fieldTerminator)
	buf.Write(make([]byte, fx.extraHeader))
	for i, rec := range fx.records {
		if fx.deleted[i] {
			buf.WriteByte('*')
		} else {
			buf.WriteByte(' ')
		}
		for j, f := range fx.fields {
			cell := bytes.Repeat([]byte{SPACE}, f.length)
			if j < len(rec) {
				copy(cell, rec[j])
			}
			buf.Write(cell)
		}
	}
	if !fx.noEOF {
		buf.WriteByte(EOF)
	}
	return buf.Bytes()
}

func int32Cell(v int32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return string(b[:])
}

func peopleFixture() fixture {
	return fixture{
		fields: []testField{
			{name: "NAME", typ: 'C', length: 10},
			{name: "AGE", typ: 'N', length: 3},
			{name: "ACTIVE", typ: 'L', length: 1},
		},
		records: [][]string{
			{"Alice", " 30", "T"},
		},
	}
}

type closeRecorder struct {
	*bytes.Reader
	calls int
	err   error
}

func (c *closeRecorder) Close() error {
	c.calls++
	return c.err
}

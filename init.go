package dbf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
)

const fieldTerminator = 0x0D

func (rd *Reader) initMetaData() error {
	err := rd.initHeader()
	if err != nil {
		return err
	}
	err = rd.initCharset()
	if err != nil {
		return err
	}
	err = rd.initFields()
	if err != nil {
		return err
	}
	rd.deriveSchema()
	return nil
}

func (rd *Reader) initHeader() error {
	err := binary.Read(rd.r, binary.LittleEndian, &rd.header)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return formatErr(rd.name, "truncated header: %v", err)
		}
		return ioErr(rd.name, err)
	}
	if !validVersions[rd.header.Version] {
		return formatErr(rd.name, "unknown version byte %#02x", rd.header.Version)
	}
	if rd.header.HeaderLength < headerSize+1 {
		return formatErr(rd.name, "header length %d too small", rd.header.HeaderLength)
	}
	return nil
}

func (rd *Reader) initCharset() error {
	name := rd.charset
	if name == "" {
		name = charsetForDriver(rd.header.LanguageDriverID)
	}
	d, err := newDecoder(name)
	if err != nil && rd.charset == "" {
		rd.log.Debug().Str("charset", name).Msg("charset of language driver not available, using default")
		name = defaultCharset
		d, err = newDecoder(name)
	}
	if err != nil {
		return formatErr(rd.name, "charset %q: %v", name, err)
	}
	rd.charset = name
	rd.decoder = d
	rd.log.Debug().Str("charset", name).Uint8("language_driver", rd.header.LanguageDriverID).Msg("charset selected")
	return nil
}

func (rd *Reader) initFields() error {
	consumed := int64(headerSize)
	declared := int64(rd.header.HeaderLength)
	var descriptors []FieldDescriptor
	var buf [descriptorSize]byte
	for {
		if consumed >= declared {
			return formatErr(rd.name, "field descriptor terminator missing within %d header bytes", declared)
		}
		b, err := rd.r.ReadByte()
		if err != nil {
			return rd.headerReadErr(err)
		}
		consumed++
		if b == fieldTerminator {
			break
		}
		if consumed+descriptorSize-1 > declared {
			return formatErr(rd.name, "field descriptor %d overruns header length %d", len(descriptors), declared)
		}
		buf[0] = b
		if _, err := io.ReadFull(rd.r, buf[1:]); err != nil {
			return rd.headerReadErr(err)
		}
		consumed += descriptorSize - 1

		var raw rawField
		if err := binary.Read(bytes.NewReader(buf[:]), binary.LittleEndian, &raw); err != nil {
			return formatErr(rd.name, "field descriptor %d: %v", len(descriptors), err)
		}
		index := bytes.IndexByte(raw.Name[:], NUL)
		if index == -1 {
			index = len(raw.Name)
		}
		descriptors = append(descriptors, FieldDescriptor{
			Name:     strings.TrimSpace(rd.decoder.ConvertString(string(raw.Name[:index]))),
			Type:     FieldType(raw.Type),
			Length:   int(raw.Length),
			Decimals: int(raw.Decimal),
		})
	}
	if len(descriptors) == 0 {
		return formatErr(rd.name, "no field descriptors")
	}

	// Visual FoxPro keeps a backlink block between the terminator and the
	// first record.
	if rest := declared - consumed; rest > 0 {
		if _, err := io.CopyN(io.Discard, rd.r, rest); err != nil {
			return rd.headerReadErr(err)
		}
	}

	width := 1
	for _, f := range descriptors {
		width += f.Length
	}
	if width > int(rd.header.RecordLength) {
		return formatErr(rd.name, "record length %d smaller than field widths %d", rd.header.RecordLength, width)
	}
	rd.fields = descriptors
	rd.buf = make([]byte, int(rd.header.RecordLength)-1)
	return nil
}

func (rd *Reader) headerReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return formatErr(rd.name, "header shorter than declared length %d", rd.header.HeaderLength)
	}
	return ioErr(rd.name, err)
}

package dbf

import "fmt"

// Header represents the fixed 32 byte structure at the start of a DBF file.
type Header struct {
	Version          byte
	LastUpdateYear   byte
	LastUpdateMonth  byte
	LastUpdateDay    byte
	NumRecords       uint32
	HeaderLength     uint16
	RecordLength     uint16
	Reserved         [2]byte
	Flag             byte
	EncryptFlag      byte
	Reserved2        [12]byte
	MDXFlag          byte
	LanguageDriverID byte
	Reserved3        [2]byte
}

// rawField is the on-disk 32 byte field descriptor.
type rawField struct {
	Name       [11]byte
	Type       byte
	Reserved1  [4]byte
	Length     byte
	Decimal    byte
	Reserved2  [2]byte
	WorkAreaID byte
	Reserved3  [10]byte
	Flag       byte
}

const (
	headerSize     = 32
	descriptorSize = 32
)

// FieldType is the single byte tag identifying a column's storage type.
type FieldType byte

const (
	FieldCharacter FieldType = 'C'
	FieldMemo      FieldType = 'M'
	FieldInteger   FieldType = 'I'
	FieldNumeric   FieldType = 'N'
	FieldFloat     FieldType = 'F'
	FieldLogical   FieldType = 'L'
	FieldDate      FieldType = 'D'
)

func (t FieldType) String() string {
	switch t {
	case FieldCharacter:
		return "character"
	case FieldMemo:
		return "memo"
	case FieldInteger:
		return "integer"
	case FieldNumeric:
		return "numeric"
	case FieldFloat:
		return "float"
	case FieldLogical:
		return "logical"
	case FieldDate:
		return "date"
	}
	return fmt.Sprintf("unknown(%#02x)", byte(t))
}

// FieldDescriptor describes one physical column. It is immutable once the
// header has been parsed.
type FieldDescriptor struct {
	Name     string
	Type     FieldType
	Length   int
	Decimals int
}

// validVersions lists the version bytes written by known dBase, FoxPro and
// Visual FoxPro producers.
var validVersions = map[byte]bool{
	0x02: true, 0x03: true, 0x04: true, 0x05: true,
	0x30: true, 0x31: true, 0x32: true,
	0x43: true, 0x63: true, 0x83: true, 0x8B: true, 0x8E: true,
	0xCB: true, 0xF5: true, 0xFB: true,
}

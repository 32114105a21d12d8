package dbf

// ColumnKind is the semantic type of a decoded column.
type ColumnKind int

const (
	ColumnText ColumnKind = iota
	ColumnNumber
	ColumnBoolean
	ColumnDate
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnText:
		return "text"
	case ColumnNumber:
		return "number"
	case ColumnBoolean:
		return "boolean"
	case ColumnDate:
		return "date"
	}
	return "unknown"
}

// Column is a decoded output column. Length and Decimals are -1 when
// unspecified.
type Column struct {
	Name     string
	Kind     ColumnKind
	Length   int
	Decimals int
}

// Schema is the ordered list of output columns of a session.
type Schema []Column

// Index returns the position of the column called name, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// deriveSchema applies the tag dispatch table to the physical fields and
// records, for every physical field, the schema slot it decodes into.
func (rd *Reader) deriveSchema() {
	schema := make(Schema, 0, len(rd.fields))
	slots := make([]int, len(rd.fields))
	for i, f := range rd.fields {
		slots[i] = -1
		var col Column
		switch f.Type {
		case FieldMemo, FieldCharacter:
			if f.Type == FieldMemo {
				rd.log.Debug().Int("field", i).Str("name", f.Name).Msg("field is a memo-field")
			}
			col = Column{Name: f.Name, Kind: ColumnText, Length: f.Length, Decimals: -1}
		case FieldInteger, FieldNumeric, FieldFloat:
			col = Column{Name: f.Name, Kind: ColumnNumber, Length: f.Length, Decimals: f.Decimals}
		case FieldLogical:
			col = Column{Name: f.Name, Kind: ColumnBoolean, Length: -1, Decimals: -1}
		case FieldDate:
			col = Column{Name: f.Name, Kind: ColumnDate, Length: -1, Decimals: -1}
		default:
			rd.log.Debug().Int("field", i).Str("name", f.Name).Stringer("type", f.Type).Msg("unknown datatype, field skipped")
			continue
		}
		slots[i] = len(schema)
		schema = append(schema, col)
	}
	rd.schema = schema
	rd.slots = slots
}

package dbf

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Unmarshal copies the cells of rec into the struct pointed to by v. Struct
// fields are matched to columns by their `dbf:"name"` tag, or by field name,
// case-insensitively. Null cells and unmatched columns leave the struct
// untouched.
func Unmarshal(schema Schema, rec Record, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("Unmarshal requires a non-nil pointer to a struct")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("Unmarshal requires a pointer to a struct, not a %s", rv.Kind())
	}

	modelColumnIndex := modelColumns(rv.Type())
	for i, col := range schema {
		if i >= len(rec) || rec[i].IsNull() {
			continue
		}
		fieldIndex, ok := modelColumnIndex[strings.ToLower(col.Name)]
		if !ok {
			continue
		}
		if err := setField(rv.Field(fieldIndex), rec[i]); err != nil {
			return fmt.Errorf("column %s: %w", col.Name, err)
		}
	}
	return nil
}

func modelColumns(rt reflect.Type) map[string]int {
	modelColumnIndex := make(map[string]int, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		dbfColumn := field.Tag.Get("dbf")
		if dbfColumn == "-" {
			continue
		}
		if dbfColumn == "" {
			dbfColumn = field.Name
		}
		modelColumnIndex[strings.ToLower(dbfColumn)] = i
	}
	return modelColumnIndex
}

func setField(fieldValue reflect.Value, v Value) error {
	if fieldValue.Type() == timeType {
		if v.Kind() != KindDate {
			return fmt.Errorf("cannot assign %s to time.Time", v.Kind())
		}
		fieldValue.Set(reflect.ValueOf(v.Date()))
		return nil
	}
	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(v.String())
	case reflect.Bool:
		if v.Kind() != KindBoolean {
			return fmt.Errorf("cannot assign %s to bool", v.Kind())
		}
		fieldValue.SetBool(v.Boolean())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Kind() != KindNumber {
			return fmt.Errorf("cannot assign %s to %s", v.Kind(), fieldValue.Kind())
		}
		n := int64(v.Number())
		if fieldValue.OverflowInt(n) {
			return fmt.Errorf("%v overflows %s", v.Number(), fieldValue.Kind())
		}
		fieldValue.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Kind() != KindNumber || v.Number() < 0 {
			return fmt.Errorf("cannot assign %s to %s", v, fieldValue.Kind())
		}
		n := uint64(v.Number())
		if fieldValue.OverflowUint(n) {
			return fmt.Errorf("%v overflows %s", v.Number(), fieldValue.Kind())
		}
		fieldValue.SetUint(n)
	case reflect.Float32, reflect.Float64:
		if v.Kind() != KindNumber {
			return fmt.Errorf("cannot assign %s to %s", v.Kind(), fieldValue.Kind())
		}
		fieldValue.SetFloat(v.Number())
	default:
		return fmt.Errorf("unsupported field kind %s", fieldValue.Kind())
	}
	return nil
}

package executor

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// sliceSink appends scanned rows to a destination slice.
type sliceSink struct {
	dest     reflect.Value
	slice    reflect.Value
	elemType reflect.Type
	pointer  bool
	fields   map[string][]int
}

func newSliceSink(dest any) (*sliceSink, error) {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.IsNil() {
		return nil, fmt.Errorf("dest must be a pointer to slice")
	}
	sliceValue := destValue.Elem()
	if sliceValue.Kind() != reflect.Slice {
		return nil, fmt.Errorf("dest must be a pointer to slice")
	}

	elemType := sliceValue.Type().Elem()
	pointer := elemType.Kind() == reflect.Ptr
	if pointer {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("dest elements must be structs, got %s", elemType)
	}

	return &sliceSink{
		dest:     destValue.Elem(),
		slice:    reflect.MakeSlice(sliceValue.Type(), 0, 0),
		elemType: elemType,
		pointer:  pointer,
		fields:   structColumns(elemType),
	}, nil
}

func (s *sliceSink) add(cols []string, vals []any) error {
	elem := reflect.New(s.elemType)
	if err := mapValuesToStruct(s.fields, cols, vals, elem.Elem()); err != nil {
		return err
	}
	if s.pointer {
		s.slice = reflect.Append(s.slice, elem)
	} else {
		s.slice = reflect.Append(s.slice, elem.Elem())
	}
	return nil
}

func (s *sliceSink) commit() {
	s.dest.Set(s.slice)
}

// structColumns maps lower-cased column names to field indexes.
func structColumns(t reflect.Type) map[string][]int {
	fields := make(map[string][]int)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = toSnakeCase(field.Name)
		}
		fields[strings.ToLower(name)] = field.Index
	}
	return fields
}

func mapValuesToStruct(fields map[string][]int, cols []string, vals []any, v reflect.Value) error {
	for i, col := range cols {
		index, ok := fields[strings.ToLower(col)]
		if !ok || vals[i] == nil {
			continue
		}
		field := v.FieldByIndex(index)
		if err := setFieldValue(field, vals[i]); err != nil {
			return fmt.Errorf("failed to set field for column %s: %w", col, err)
		}
	}
	return nil
}

// setFieldValue sets a struct field from a driver value. Text values are
// parsed into numeric and boolean fields.
func setFieldValue(fieldValue reflect.Value, value any) error {
	fieldType := fieldValue.Type()

	if fieldType.Kind() == reflect.Ptr {
		elemValue := reflect.New(fieldType.Elem()).Elem()
		if err := setFieldValue(elemValue, value); err != nil {
			return err
		}
		fieldValue.Set(elemValue.Addr())
		return nil
	}

	valueValue := reflect.ValueOf(value)
	valueType := valueValue.Type()
	if valueType.AssignableTo(fieldType) {
		fieldValue.Set(valueValue)
		return nil
	}

	if text, ok := value.(string); ok {
		return setFromText(fieldValue, text)
	}

	if valueType.ConvertibleTo(fieldType) && fieldType.Kind() != reflect.String {
		fieldValue.Set(valueValue.Convert(fieldType))
		return nil
	}
	if fieldType.Kind() == reflect.String {
		fieldValue.SetString(fmt.Sprint(value))
		return nil
	}

	return fmt.Errorf("cannot convert %s to %s", valueType, fieldType)
}

func setFromText(fieldValue reflect.Value, text string) error {
	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(text)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, fieldValue.Type().Bits())
		if err != nil {
			return err
		}
		fieldValue.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(text, 10, fieldValue.Type().Bits())
		if err != nil {
			return err
		}
		fieldValue.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, fieldValue.Type().Bits())
		if err != nil {
			return err
		}
		fieldValue.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return err
		}
		fieldValue.SetBool(b)
	default:
		if fieldValue.Type() == reflect.TypeOf(time.Time{}) {
			t, err := parseTime(text)
			if err != nil {
				return err
			}
			fieldValue.Set(reflect.ValueOf(t))
			return nil
		}
		return fmt.Errorf("cannot convert string to %s", fieldValue.Type())
	}
	return nil
}

// nullDates are the "no date set" literals written by the dialects.
var nullDates = map[string]bool{
	"":                    true,
	"0000-00-00":          true,
	"0000-00-00 00:00:00": true,
	"0001-01-01":          true,
	"0001-01-01 00:00:00": true,
}

var timeLayouts = []string{time.DateTime, time.RFC3339Nano, time.DateOnly}

// parseTime reads a stored datetime. Null-date literals scan as the zero time.
func parseTime(text string) (time.Time, error) {
	if nullDates[text] {
		return time.Time{}, nil
	}
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// toSnakeCase converts PascalCase to snake_case
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

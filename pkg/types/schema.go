package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// FieldKind tags the semantic type of a schema field. The store uses the
// tag to coerce incoming string filter values; unknown combinations fall
// through as plain strings.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldUUID
	FieldInstant
	FieldInt
	FieldBool
	FieldEnum
)

// FieldType pairs a kind tag with an enum parser for FieldEnum fields.
type FieldType struct {
	Kind  FieldKind
	Parse func(string) (any, error)
}

// Schema maps field names to their declared semantic types.
type Schema map[string]FieldType

func StringField() FieldType  { return FieldType{Kind: FieldString} }
func UUIDField() FieldType    { return FieldType{Kind: FieldUUID} }
func InstantField() FieldType { return FieldType{Kind: FieldInstant} }
func IntField() FieldType     { return FieldType{Kind: FieldInt} }
func BoolField() FieldType    { return FieldType{Kind: FieldBool} }

// EnumField builds a FieldType whose values parse through fn.
func EnumField(fn func(string) (any, error)) FieldType {
	return FieldType{Kind: FieldEnum, Parse: fn}
}

// Coerce attempts to convert a raw value to the field's declared type.
// It returns the coerced value and whether coercion succeeded; on
// failure the caller keeps the original value unchanged.
func (f FieldType) Coerce(raw any) (any, bool) {
	s, isString := raw.(string)
	switch f.Kind {
	case FieldUUID:
		if !isString {
			return raw, false
		}
		id, err := uuid.Parse(normalizeHexUUID(s))
		if err != nil {
			return raw, false
		}
		return id, true
	case FieldInstant:
		if !isString {
			return raw, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return raw, false
	case FieldEnum:
		if !isString || f.Parse == nil {
			return raw, false
		}
		v, err := f.Parse(s)
		if err != nil {
			return raw, false
		}
		return v, true
	case FieldInt:
		switch v := raw.(type) {
		case int, int64:
			return raw, true
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return raw, false
			}
			return n, true
		}
		return raw, false
	case FieldBool:
		if !isString {
			_, ok := raw.(bool)
			return raw, ok
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return raw, false
		}
		return b, true
	default:
		if isString {
			return s, true
		}
		return raw, false
	}
}

// normalizeHexUUID accepts both canonical and 32-char hex UUID forms.
func normalizeHexUUID(s string) string {
	if len(s) != 32 {
		return s
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s", s[0:8], s[8:12], s[12:16], s[16:20], s[20:32])
}

// JobSchema declares the coercible fields of a Job record.
func JobSchema() Schema {
	s := envelopeSchema()
	s["dataset_name"] = StringField()
	s["user_code_id"] = UUIDField()
	s["runtime_id"] = UUIDField()
	s["status"] = EnumField(func(v string) (any, error) { return ParseJobStatus(v) })
	s["output_url"] = StringField()
	s["error_message"] = StringField()
	s["return_code"] = IntField()
	return s
}

// DatasetSchema declares the coercible fields of a Dataset record.
func DatasetSchema() Schema {
	s := envelopeSchema()
	s["summary"] = StringField()
	s["mock"] = StringField()
	s["private"] = StringField()
	s["runtime_id"] = UUIDField()
	return s
}

// RuntimeSchema declares the coercible fields of a Runtime record.
func RuntimeSchema() Schema {
	s := envelopeSchema()
	s["kind"] = EnumField(func(v string) (any, error) { return ParseRuntimeKind(v) })
	return s
}

// UserCodeSchema declares the coercible fields of a UserCode record.
func UserCodeSchema() Schema {
	s := envelopeSchema()
	s["entrypoint"] = StringField()
	s["code_type"] = EnumField(func(v string) (any, error) { return ParseUserCodeType(v) })
	s["local_dir"] = StringField()
	return s
}

// CustomFunctionSchema declares the coercible fields of a CustomFunction
// record.
func CustomFunctionSchema() Schema {
	s := envelopeSchema()
	s["entrypoint"] = StringField()
	s["readme_filename"] = StringField()
	s["local_dir"] = StringField()
	return s
}

package pocketbase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// systemFields are managed by the server. Encode drops them when they carry
// no value so a zero BaseRecord never overwrites anything.
var systemFields = []string{"id", "created", "updated", "collectionId", "collectionName"}

// Encode serializes record into a JSON object. Values that do not encode to
// an object (primitives, slices, nil) and values encoding/json rejects
// (channels, functions, cycles) fail with a SerializationError.
func Encode(record any) ([]byte, error) {
	typeName := fmt.Sprintf("%T", record)
	if record == nil {
		return nil, &SerializationError{Type: "nil", Reason: "record is nil"}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, &SerializationError{Type: typeName, Reason: err.Error(), Err: err}
	}

	if kind := jsonKind(data); kind != "object" {
		return nil, &SerializationError{Type: typeName, Reason: "encodes to a JSON " + kind + ", not an object"}
	}

	var fields map[string]json.RawMessage

	err = json.Unmarshal(data, &fields)
	if err != nil {
		return nil, &SerializationError{Type: typeName, Reason: err.Error(), Err: err}
	}

	for _, key := range systemFields {
		if raw, ok := fields[key]; ok && isEmptyJSON(raw) {
			delete(fields, key)
		}
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, &SerializationError{Type: typeName, Reason: err.Error(), Err: err}
	}

	return out, nil
}

// EncodeMerged encodes record on top of original, the raw object it was read
// from. Fields record does not declare keep their original values.
func EncodeMerged(original []byte, record any) ([]byte, error) {
	var base map[string]json.RawMessage

	if jsonKind(original) != "object" {
		return nil, &SerializationError{Type: "original", Reason: "original is not a JSON object"}
	}

	err := json.Unmarshal(original, &base)
	if err != nil {
		return nil, &SerializationError{Type: "original", Reason: err.Error(), Err: err}
	}

	encoded, err := Encode(record)
	if err != nil {
		return nil, err
	}

	var overlay map[string]json.RawMessage

	err = json.Unmarshal(encoded, &overlay)
	if err != nil {
		return nil, &SerializationError{Type: fmt.Sprintf("%T", record), Reason: err.Error(), Err: err}
	}

	for key, value := range overlay {
		base[key] = value
	}

	out, err := json.Marshal(base)
	if err != nil {
		return nil, &SerializationError{Type: fmt.Sprintf("%T", record), Reason: err.Error(), Err: err}
	}

	return out, nil
}

// Decode deserializes a single record. Struct fields tagged pb:"required"
// must be present and non-null.
func Decode[T any](body []byte) (T, error) {
	var out T

	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return out, newDeserializationError(DecodeUnknownShape, "", "malformed JSON", nil)
	}

	if kind := jsonKind(trimmed); kind != "object" {
		return out, newDeserializationError(DecodeUnknownShape, "", "expected a JSON object, got "+kind, nil)
	}

	err := json.Unmarshal(trimmed, &out)
	if err != nil {
		return out, wrapDecodeError(err)
	}

	err = checkRequired(reflect.TypeOf(out), trimmed)
	if err != nil {
		return out, err
	}

	return out, nil
}

// DecodeList deserializes a list envelope. The envelope is validated before
// any item is decoded; a failing item fails the whole call with its index.
func DecodeList[T any](body []byte) (*ListResult[T], error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) || jsonKind(trimmed) != "object" {
		return nil, newDeserializationError(DecodeUnknownShape, "", "list response is not a JSON object", nil)
	}

	var envelope map[string]json.RawMessage

	err := json.Unmarshal(trimmed, &envelope)
	if err != nil {
		return nil, newDeserializationError(DecodeUnknownShape, "", err.Error(), err)
	}

	result := &ListResult[T]{}

	counters := []struct {
		key string
		dst *int
	}{
		{"page", &result.Page},
		{"perPage", &result.PerPage},
		{"totalItems", &result.TotalItems},
		{"totalPages", &result.TotalPages},
	}

	for _, counter := range counters {
		err = decodeEnvelopeField(envelope, counter.key, counter.dst)
		if err != nil {
			return nil, err
		}
	}

	var items []json.RawMessage

	err = decodeEnvelopeField(envelope, "items", &items)
	if err != nil {
		return nil, err
	}

	err = validateEnvelope(result, len(items))
	if err != nil {
		return nil, err
	}

	result.Items = make([]T, 0, len(items))

	for i, raw := range items {
		item, err := Decode[T](raw)
		if err != nil {
			var decodeErr *DeserializationError
			if errors.As(err, &decodeErr) {
				decodeErr.Index = i
			}

			return nil, err
		}

		result.Items = append(result.Items, item)
	}

	return result, nil
}

func decodeEnvelopeField(envelope map[string]json.RawMessage, key string, dst any) error {
	raw, ok := envelope[key]
	if !ok {
		return newDeserializationError(DecodeMissingField, key, "list envelope field is missing", nil)
	}

	if isNullJSON(raw) {
		return newDeserializationError(DecodeWrongType, key, "list envelope field is null", nil)
	}

	err := json.Unmarshal(raw, dst)
	if err != nil {
		return newDeserializationError(DecodeWrongType, key, "got JSON "+jsonKind(raw), err)
	}

	return nil
}

func validateEnvelope[T any](result *ListResult[T], itemCount int) error {
	switch {
	case result.Page < 1:
		return newDeserializationError(DecodeUnknownShape, "page", fmt.Sprintf("must be >= 1, got %d", result.Page), nil)
	case result.PerPage < 1:
		return newDeserializationError(DecodeUnknownShape, "perPage", fmt.Sprintf("must be >= 1, got %d", result.PerPage), nil)
	case result.TotalItems < -1:
		return newDeserializationError(DecodeUnknownShape, "totalItems", fmt.Sprintf("must be >= -1, got %d", result.TotalItems), nil)
	case result.TotalPages < -1:
		return newDeserializationError(DecodeUnknownShape, "totalPages", fmt.Sprintf("must be >= -1, got %d", result.TotalPages), nil)
	case (result.TotalItems != -1 || result.TotalPages != -1) &&
		result.TotalPages != (result.TotalItems+result.PerPage-1)/result.PerPage:
		return newDeserializationError(DecodeUnknownShape, "totalPages",
			fmt.Sprintf("%d pages do not fit %d items at perPage %d", result.TotalPages, result.TotalItems, result.PerPage), nil)
	case itemCount > result.PerPage:
		return newDeserializationError(DecodeUnknownShape, "items",
			fmt.Sprintf("%d items exceed perPage %d", itemCount, result.PerPage), nil)
	}

	return nil
}

func wrapDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return newDeserializationError(DecodeWrongType, typeErr.Field,
			fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value), err)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return newDeserializationError(DecodeUnknownShape, "", err.Error(), err)
	}

	return newDeserializationError(DecodeWrongType, "", err.Error(), err)
}

var requiredFieldsCache sync.Map

// checkRequired reports the first pb:"required" field of t that body lacks.
func checkRequired(t reflect.Type, body []byte) error {
	required := requiredFields(t)
	if len(required) == 0 {
		return nil
	}

	var present map[string]json.RawMessage

	err := json.Unmarshal(body, &present)
	if err != nil {
		return newDeserializationError(DecodeUnknownShape, "", err.Error(), err)
	}

	for _, name := range required {
		raw, ok := present[name]
		if !ok || isNullJSON(raw) {
			return newDeserializationError(DecodeMissingField, name, "required field is missing", nil)
		}
	}

	return nil
}

func requiredFields(t reflect.Type) []string {
	if t == nil {
		return nil
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil
	}

	if cached, ok := requiredFieldsCache.Load(t); ok {
		fields, _ := cached.([]string)

		return fields
	}

	var fields []string

	collectRequiredFields(t, &fields)
	requiredFieldsCache.Store(t, fields)

	return fields
}

func collectRequiredFields(t reflect.Type, out *[]string) {
	for i := range t.NumField() {
		field := t.Field(i)

		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}

		if field.Anonymous && name == "" {
			embedded := field.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}

			if embedded.Kind() == reflect.Struct {
				collectRequiredFields(embedded, out)

				continue
			}
		}

		if !field.IsExported() || !hasTagOption(field.Tag.Get("pb"), "required") {
			continue
		}

		if name == "" {
			name = field.Name
		}

		*out = append(*out, name)
	}
}

func hasTagOption(tag, option string) bool {
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == option {
			return true
		}
	}

	return false
}

func isNullJSON(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := string(bytes.TrimSpace(raw))

	return trimmed == "null" || trimmed == `""`
}

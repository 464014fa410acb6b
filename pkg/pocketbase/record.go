package pocketbase

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Record is an untyped record. It keeps every field the server sends, so a
// Record read and written back loses nothing.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string { return r.GetString("id") }

// CollectionName returns the collectionName system field.
func (r Record) CollectionName() string { return r.GetString("collectionName") }

// GetString returns key as a string, or "" when absent or not a string.
func (r Record) GetString(key string) string {
	value, _ := r[key].(string)

	return value
}

// GetDateTime parses key as a DateTime.
func (r Record) GetDateTime(key string) DateTime {
	parsed, err := ParseDateTime(r.GetString(key))
	if err != nil {
		return DateTime{}
	}

	return parsed
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}

	var out Record

	_ = json.Unmarshal(data, &out)

	return out
}

// Decode copies r into out, a pointer to a struct with json tags. Embedded
// structs such as BaseRecord are flattened the way encoding/json does.
func (r Record) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Squash:     true,
		Result:     out,
		DecodeHook: timestampDecodeHook,
	})
	if err != nil {
		return &InvalidArgumentError{Argument: "out", Reason: err.Error()}
	}

	err = decoder.Decode(map[string]any(r))
	if err != nil {
		return newDeserializationError(DecodeWrongType, "", err.Error(), err)
	}

	return nil
}

var (
	dateTimeType = reflect.TypeOf(DateTime{})
	timeType     = reflect.TypeOf(time.Time{})
)

func timestampDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || (to != dateTimeType && to != timeType) {
		return data, nil
	}

	raw := reflect.ValueOf(data).String()

	parsed, err := ParseDateTime(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %q as timestamp: %w", raw, err)
	}

	if to == timeType {
		return parsed.Time(), nil
	}

	return parsed, nil
}

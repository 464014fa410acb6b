package pocketbase

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SuperusersCollection is the reserved collection used for administrative
// authentication.
const SuperusersCollection = "_superusers"

// DateTimeLayout is the timestamp format PocketBase writes.
const DateTimeLayout = "2006-01-02 15:04:05.000Z"

var dateTimeLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339Nano,
}

// DateTime is a PocketBase timestamp. The zero value marshals to "".
type DateTime struct {
	t time.Time
}

// NewDateTime returns t as a DateTime in UTC.
func NewDateTime(t time.Time) DateTime {
	return DateTime{t: t.UTC()}
}

// ParseDateTime parses the PocketBase format or RFC 3339. An empty string
// yields the zero DateTime.
func ParseDateTime(value string) (DateTime, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DateTime{}, nil
	}

	var lastErr error

	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return NewDateTime(t), nil
		}

		lastErr = err
	}

	return DateTime{}, lastErr
}

// Time returns the underlying time.
func (d DateTime) Time() time.Time { return d.t }

// IsZero reports whether d is unset.
func (d DateTime) IsZero() bool { return d.t.IsZero() }

// String formats d with DateTimeLayout, or "" when unset.
func (d DateTime) String() string {
	if d.t.IsZero() {
		return ""
	}

	return d.t.UTC().Format(DateTimeLayout)
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = DateTime{}

		return nil
	}

	var raw string

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return &json.UnmarshalTypeError{Value: jsonKind(data), Type: reflect.TypeOf(DateTime{})}
	}

	parsed, err := ParseDateTime(raw)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "string " + raw, Type: reflect.TypeOf(DateTime{})}
	}

	*d = parsed

	return nil
}

// BaseRecord holds the fields the server manages on every record. Embed it in
// user types to receive them.
type BaseRecord struct {
	ID             string   `json:"id,omitempty"             yaml:"id,omitempty"`
	CollectionID   string   `json:"collectionId,omitempty"   yaml:"collectionId,omitempty"`
	CollectionName string   `json:"collectionName,omitempty" yaml:"collectionName,omitempty"`
	Created        DateTime `json:"created"                  yaml:"created"`
	Updated        DateTime `json:"updated"                  yaml:"updated"`
}

// ListResult is one page of a list response.
type ListResult[T any] struct {
	Page       int `json:"page"       yaml:"page"`
	PerPage    int `json:"perPage"    yaml:"perPage"`
	TotalItems int `json:"totalItems" yaml:"totalItems"`
	TotalPages int `json:"totalPages" yaml:"totalPages"`
	Items      []T `json:"items"      yaml:"items"`
}

// AuthResult is the response of an authentication endpoint.
type AuthResult struct {
	Token  string `json:"token"  yaml:"token"`
	Record Record `json:"record" yaml:"record"`
}

// AuthState is a point-in-time copy of a client's authentication state.
// Token and Record are either both set or both empty.
type AuthState struct {
	Token          string
	Record         Record
	CollectionName string
}

// IsAuthenticated reports whether a token is held.
func (s AuthState) IsAuthenticated() bool { return s.Token != "" }

// ExpiresAt returns the exp claim of the token. The signature is not
// verified; the server remains the authority.
func (s AuthState) ExpiresAt() (time.Time, error) {
	return TokenExpiry(s.Token)
}

// IsValid reports whether a token is held and has not expired.
func (s AuthState) IsValid() bool {
	if s.Token == "" {
		return false
	}

	exp, err := s.ExpiresAt()
	if err != nil {
		return false
	}

	return time.Now().Before(exp)
}

// TokenExpiry reads the exp claim of a JWT without verifying it.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, &InvalidArgumentError{Argument: "token", Reason: err.Error()}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, &InvalidArgumentError{Argument: "token", Reason: "no expiration claim"}
	}

	return exp.Time, nil
}

func jsonKind(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "empty"
	}

	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

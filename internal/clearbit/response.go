package clearbit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrFieldAbsent marks a field the API did not return
var ErrFieldAbsent = errors.New("field absent")

// Field is an optional JSON value. Decoding never fails: a missing or null value
// leaves the field absent, a value of the wrong shape is kept in Err.
type Field[T any] struct {
	Value T
	Valid bool
	Err   error
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		f.Err = err
		return nil
	}
	f.Value = v
	f.Valid = true
	f.Err = nil
	return nil
}

// Get returns the value, ErrFieldAbsent, or the decode error for a malformed value
func (f Field[T]) Get() (T, error) {
	if f.Valid {
		return f.Value, nil
	}
	var zero T
	if f.Err != nil {
		return zero, f.Err
	}
	return zero, ErrFieldAbsent
}

// Present reports whether the field decoded to a value
func (f Field[T]) Present() bool {
	return f.Valid
}

// Response is the combined person/company payload
type Response struct {
	Person  Field[Person]  `json:"person"`
	Geo     Field[Geo]     `json:"geo"`
	Company Field[Company] `json:"company"`
}

// Person is the person block
type Person struct {
	Name Field[Name] `json:"name"`
}

// Name holds the person's names
type Name struct {
	FullName Field[string] `json:"fullName"`
}

// Geo is a location block, used for both the person and the company
type Geo struct {
	StreetNumber Field[string] `json:"streetNumber"`
	StreetName   Field[string] `json:"streetName"`
	City         Field[string] `json:"city"`
	PostalCode   Field[string] `json:"postalCode"`
	State        Field[string] `json:"state"`
	Country      Field[string] `json:"country"`
}

// Company is the employer block
type Company struct {
	DomainAliases Field[[]string] `json:"domainAliases"`
	Site          Field[Site]     `json:"site"`
	Geo           Field[Geo]      `json:"geo"`
}

// Site holds contact details scraped from the company website
type Site struct {
	PhoneNumbers   Field[[]string] `json:"phoneNumbers"`
	EmailAddresses Field[[]string] `json:"emailAddresses"`
}

// ParseResponse decodes a response body. Only a body that is not a JSON object fails.
func ParseResponse(body []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrParse)
	}

	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &resp, nil
}

// Empty reports whether none of the top-level blocks are present
func (r *Response) Empty() bool {
	return !r.Person.Present() && !r.Geo.Present() && !r.Company.Present()
}

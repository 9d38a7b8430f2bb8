// Package serializer maps model records to and from their wire
// representation.  Input is kept presence-aware so that create, full
// update and partial update can apply different required-field rules
// while sharing one set of per-field parsers.
package serializer

import (
	"bytes"
	"encoding/json"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Mode selects which required-field rule applies to an input.
type Mode int

const (
	// Create requires the fields without a model default.
	Create Mode = iota
	// Update (PUT) requires every writable field.
	Update
	// Partial (PATCH) accepts any subset of writable fields.
	Partial
)

// Validation messages shared by the serializers.
const (
	msgRequired    = "This field is required."
	msgNull        = "This field may not be null."
	msgBlank       = "This field may not be blank."
	msgString      = "Not a valid string."
	msgInteger     = "A valid integer is required."
	msgNumber      = "A valid number is required."
	msgDate        = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	msgNotAnObject = "Invalid data. Expected a dictionary."
	msgParse       = "JSON parse error."
)

// NonFieldErrors is the key used for errors not tied to a single field.
const NonFieldErrors = "non_field_errors"

// ValidationError collects field-level messages keyed by wire field name.
type ValidationError map[string][]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e ValidationError) add(field, msg string) { e[field] = append(e[field], msg) }

func (e ValidationError) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Input holds the raw values of a request body keyed by field name.
// A key is present only if the client sent the field.
type Input map[string]json.RawMessage

// Has reports whether the client sent field.
func (in Input) Has(field string) bool {
	_, ok := in[field]
	return ok
}

// DecodeJSON parses a JSON object body.  An empty body is an empty input.
func DecodeJSON(body []byte) (Input, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Input{}, nil
	}
	if body[0] != '{' {
		if !json.Valid(body) {
			return nil, ValidationError{NonFieldErrors: {msgParse}}
		}
		return nil, ValidationError{NonFieldErrors: {msgNotAnObject}}
	}
	in := Input{}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, ValidationError{NonFieldErrors: {msgParse}}
	}
	return in, nil
}

// FromForm converts form values into an Input.  Only the first value of
// each key is kept and every value is carried as a JSON string.
func FromForm(values url.Values) Input {
	in := make(Input, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		raw, _ := json.Marshal(vs[0])
		in[k] = raw
	}
	return in
}

// checkRequired records msgRequired for every missing field of fields.
func checkRequired(in Input, errs ValidationError, fields ...string) {
	for _, f := range fields {
		if !in.Has(f) {
			errs.add(f, msgRequired)
		}
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the validator tags of s and records failures in errs.
// Fields that already failed parsing are skipped.
func checkStruct(s any, errs ValidationError) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.add(NonFieldErrors, err.Error())
		return
	}
	for _, fe := range verrs {
		if _, failed := errs[fe.Field()]; failed {
			continue
		}
		errs.add(fe.Field(), tagMessage(fe))
	}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		if fe.Kind() == reflect.String {
			return msgBlank
		}
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "max":
		if fe.Kind() == reflect.String {
			return "Ensure this field has no more than " + fe.Param() + " characters."
		}
		return "Ensure this value is less than or equal to " + fe.Param() + "."
	case "gte":
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "lte":
		return "Ensure this value is less than or equal to " + fe.Param() + "."
	}
	return "Invalid value."
}

// Many renders a slice with one, always producing a JSON array.
func Many[T, R any](items []T, one func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, it := range items {
		out = append(out, one(it))
	}
	return out
}

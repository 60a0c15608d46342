package shared

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Global validator instance for reuse
var validate = validator.New()

// ValidateRequest validates the given struct using the validator package.
func ValidateRequest(v interface{}) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}

// Query reads typed query parameters with defaults. The first parse error is
// kept and reported by Err; later lookups still return their defaults.
type Query struct {
	values url.Values
	err    error
}

// NewQuery wraps the query parameters of r.
func NewQuery(r *http.Request) *Query {
	return &Query{values: r.URL.Query()}
}

// Err returns the first parse error, if any.
func (q *Query) Err() error {
	return q.err
}

func (q *Query) lookup(name string) (string, bool) {
	v := q.values.Get(name)
	return v, v != ""
}

func (q *Query) fail(name, raw, want string) {
	if q.err == nil {
		q.err = fmt.Errorf("query parameter %q: %q is not %s", name, raw, want)
	}
}

// String returns the parameter name or def.
func (q *Query) String(name, def string) string {
	if v, ok := q.lookup(name); ok {
		return v
	}
	return def
}

// Int returns the parameter name parsed as an int, or def.
func (q *Query) Int(name string, def int) int {
	raw, ok := q.lookup(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, raw, "an integer")
		return def
	}
	return v
}

// Float returns the parameter name parsed as a float64, or def.
func (q *Query) Float(name string, def float64) float64 {
	raw, ok := q.lookup(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(name, raw, "a number")
		return def
	}
	return v
}

// Bool returns the parameter name parsed as a bool, or def.
func (q *Query) Bool(name string, def bool) bool {
	raw, ok := q.lookup(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, raw, "a boolean")
		return def
	}
	return v
}

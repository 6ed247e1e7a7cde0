// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/gscstats/internal/models"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	// countryPattern matches Search Console country codes (ISO 3166-1 alpha-3, lower case)
	countryPattern = regexp.MustCompile(`^[a-z]{3}$`)

	// hostnamePattern is a permissive RFC 1123 host name check
	hostnamePattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)*[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
)

// ValidationError is one failed field.
type ValidationError struct {
	field, tag, param string
	value             interface{}
	message           string
}

func (e *ValidationError) Field() string      { return e.field }
func (e *ValidationError) Tag() string        { return e.tag }
func (e *ValidationError) Param() string      { return e.param }
func (e *ValidationError) Value() interface{} { return e.value }
func (e *ValidationError) Error() string      { return e.message }

// RequestValidationError lists every failed field of one request.
type RequestValidationError struct {
	errors []ValidationError
}

func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	for i := range ve.errors {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ve.errors[i].message)
	}
	return b.String()
}

// validationErrorCode matches api.ErrCodeValidationFailed.
const validationErrorCode = "VALIDATION_ERROR"

// APIError is the body the api package writes for a failed request. It is
// declared here because api imports this package.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError shapes the failures for a 400 response. A single failure puts
// field, tag and value in Details; several go under Details["fields"].
func (ve *RequestValidationError) ToAPIError() *APIError {
	out := &APIError{Code: validationErrorCode, Message: "Validation failed"}

	switch len(ve.errors) {
	case 0:
	case 1:
		e := ve.errors[0]
		out.Message = e.message
		out.Details = map[string]interface{}{"field": e.field, "tag": e.tag, "value": e.value}
	default:
		fields := make([]map[string]interface{}, 0, len(ve.errors))
		parts := make([]string, 0, len(ve.errors))
		for _, e := range ve.errors {
			fields = append(fields, map[string]interface{}{"field": e.field, "tag": e.tag, "message": e.message})
			parts = append(parts, e.field+": "+e.message)
		}
		out.Message = strings.Join(parts, "; ")
		out.Details = map[string]interface{}{"fields": fields}
	}
	return out
}

// GetValidator returns the singleton validator with the custom tags
// registered. It is safe for concurrent use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Tag values are registered at init; an error here is a programming bug
		mustRegister(validate, "isodate", validateISODate)
		mustRegister(validate, "datege", validateDateGE)
		mustRegister(validate, "entity", validateEntity)
		mustRegister(validate, "country", validateCountry)
		mustRegister(validate, "cachepattern", validateCachePattern)

		// Report json names so messages match query parameters
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})

	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// validateISODate accepts a YYYY-MM-DD calendar date.
func validateISODate(fl validator.FieldLevel) bool {
	_, err := models.ParseDate(fl.Field().String())
	return err == nil
}

// validateDateGE requires the date to be on or after the date in the field
// named by the tag parameter. An unparsable sibling is left to its own tags.
func validateDateGE(fl validator.FieldLevel) bool {
	end, err := models.ParseDate(fl.Field().String())
	if err != nil {
		return false
	}
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return false
	}
	other := parent.FieldByName(fl.Param())
	if !other.IsValid() || other.Kind() != reflect.String {
		return false
	}
	start, err := models.ParseDate(other.String())
	if err != nil {
		return true
	}
	return !end.Before(start)
}

// validateEntity accepts a bare host name, an sc-domain: property or an
// http(s) URL-prefix property.
func validateEntity(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) == 0 || len(s) > 2048 {
		return false
	}
	if rest, ok := strings.CutPrefix(s, "sc-domain:"); ok {
		return hostnamePattern.MatchString(strings.ToLower(rest))
	}
	if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		return !strings.ContainsAny(s, " \t\r\n")
	}
	return hostnamePattern.MatchString(strings.ToLower(s))
}

// validateCountry accepts an alpha-3 code or the unknown-country marker.
func validateCountry(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == models.UnknownDimension || countryPattern.MatchString(s)
}

func validateCachePattern(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && doublestar.ValidatePattern(s)
}

// ValidateStruct runs the shared validator over s. nil means valid.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError: s was not a struct.
		return &RequestValidationError{errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}}}
	}

	out := &RequestValidationError{errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.errors = append(out.errors, ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: message(fe),
		})
	}
	return out
}

// messages are keyed by tag and formatted with (field, param).
var messages = map[string]string{
	"required":     "%[1]s is required",
	"isodate":      "%[1]s must be a date in YYYY-MM-DD format",
	"entity":       "%[1]s must be a host name, sc-domain: property or URL",
	"country":      "%[1]s must be a three-letter country code",
	"cachepattern": "%[1]s must be a valid glob pattern",
	"oneof":        "%[1]s must be one of: %[2]s",
	"datege":       "%[1]s must not be before %[2]s",
	"gte":          "%[1]s must be greater than or equal to %[2]s",
	"lte":          "%[1]s must be less than or equal to %[2]s",
}

func message(fe validator.FieldError) string {
	tag := fe.Tag()
	if tmpl, ok := messages[tag]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", fe.Field(), fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", fe.Field(), fe.Param(), unit)
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), tag)
}

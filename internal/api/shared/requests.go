package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskd/internal/domain"
)

// Global validator instance for reuse
var validate = newValidator()

// newValidator reports fields by their JSON names so validation messages
// match the request body the client sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// DecodeFields decodes a JSON object body into its raw members, keeping the
// set of keys the client sent. An empty body decodes to an empty map.
func DecodeFields(r *http.Request) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if err := DecodeJSON(r, &fields); err != nil {
		if errors.Is(err, ErrEmptyBody) {
			return fields, nil
		}
		return nil, err
	}
	return fields, nil
}

// ValidateRequest validates v with its own Validate method when it has one
// and with struct tags otherwise. The first failing tag is reported as a
// *domain.ValidationError.
func ValidateRequest(v interface{}) error {
	if self, ok := v.(interface{ Validate() error }); ok {
		return self.Validate()
	}

	err := validate.Struct(v)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewValidationError(fe.Field(), tagMessage(fe), nil)
	}
	return err
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is invalid"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

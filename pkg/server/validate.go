package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"neta/pkg/schema"
)

const (
	defaultLength = 350
	minLength     = 50
	maxLength     = 2000
)

// generatePayload mirrors the transport body with pointer fields so absent
// and present-but-zero values stay distinguishable.
type generatePayload struct {
	Theme      *string `json:"theme"`
	Genre      *string `json:"genre"`
	Characters *string `json:"characters"`
	Length     *int    `json:"length"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest resolves defaults for absent fields and range-checks the
// rest. On any violation it returns a per-field breakdown and no request;
// out-of-range values are rejected, never clamped.
func validateRequest(p generatePayload) (schema.GenerateRequest, map[string]string) {
	req := schema.GenerateRequest{Length: defaultLength}
	if p.Theme != nil {
		req.Theme = *p.Theme
	}
	if p.Genre != nil {
		req.Genre = *p.Genre
	}
	if p.Characters != nil {
		req.Characters = *p.Characters
	}
	if p.Length != nil {
		req.Length = *p.Length
	}

	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return schema.GenerateRequest{}, map[string]string{"request": err.Error()}
		}
		detail := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			detail[fe.Field()] = fieldMessage(fe)
		}
		return schema.GenerateRequest{}, detail
	}

	return req, nil
}

func fieldMessage(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		switch fe.Tag() {
		case "max":
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "is invalid"
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}

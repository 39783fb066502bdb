package handler

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := localtime.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := localtime.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// bind decodes the request into dst and runs its validate tags. Failures
// come back as *apperr.ValidationError naming the first bad field.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Invalid("", "malformed request")
	}
	return check(dst)
}

func check(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Invalid("", "%v", err)
	}
	fe := verrs[0]
	return &apperr.ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "date":
		return "must be YYYY-MM-DD"
	case "clock":
		return "must be HH:MM"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "must be " + fe.Param() + " characters"
	case "email":
		return "must be an email address"
	case "oneof":
		return "must be one of " + fe.Param()
	case "numeric":
		return "must be digits"
	}
	return "failed " + fe.Tag()
}

// pathID parses the :id parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("id", "must be a positive integer")
	}
	return id, nil
}

// clockPtr converts an optional HH:MM field.
func clockPtr(s *string) (*int, error) {
	if s == nil {
		return nil, nil
	}
	m, err := localtime.ParseClock(*s)
	if err != nil {
		return nil, apperr.Invalid("time", "must be HH:MM")
	}
	return &m, nil
}

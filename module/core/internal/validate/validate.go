// Package validate wraps go-playground/validator with the tags used by the
// domain types, most notably "finite" which rejects NaN and ±Inf.
package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		})
	})
	return v
}

// Struct validates s and wraps any failure in kind, so callers can match it with errors.Is.
func Struct(kind error, s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", kind, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + ": required"
	case "finite":
		return field + ": must be a finite number"
	case "gte":
		return field + ": must be >= " + fe.Param()
	case "lte":
		return field + ": must be <= " + fe.Param()
	case "gt":
		return field + ": must be > " + fe.Param()
	case "url":
		return field + ": must be a valid URL"
	default:
		return field + ": failed " + fe.Tag()
	}
}

package common

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks struct tags on v and converts failures into a 422 AppError
// whose details list one FieldError per rejected field. A missing required
// value is reported as "<field>.empty", other failures as "<field>.<tag>".
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewAppError("VALIDATION_ERROR", err.Error(), http.StatusUnprocessableEntity, err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		tag := fe.Tag()
		if tag == "required" {
			tag = "empty"
		}
		fields = append(fields, FieldError{Field: fe.Field(), Reason: fe.Field() + "." + tag})
	}
	appErr := ValidationError("request validation failed", fields...)
	appErr.Err = err
	return appErr
}

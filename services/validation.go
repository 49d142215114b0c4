package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

// reservedUsername is the path segment of the self-service endpoint.
const reservedUsername = "me"

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
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return usernamePattern.MatchString(s) && s != reservedUsername
	})
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(time.Now().Year())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "user", "moderator", "admin":
			return true
		}
		return false
	})
	return v
}

// validateInput checks the struct tags of input and converts failures into a ValidationError.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	verr := &ValidationError{Message: "Invalid input."}
	for _, fe := range fieldErrs {
		verr.Add(fieldName(fe), fieldMessage(fe))
	}
	return verr
}

// fieldName drops the struct name and collapses slice indexes: "genre[1]" becomes "genre".
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return name
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gte":
		if fe.Field() == "year" {
			return fmt.Sprintf("%v is not a valid year.", fe.Value())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "username":
		if fe.Value() == reservedUsername {
			return fmt.Sprintf("Username %q is not allowed.", reservedUsername)
		}
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "notfuture":
		return fmt.Sprintf("%v is not a valid year.", fe.Value())
	case "role":
		return fmt.Sprintf("%q is not a valid choice.", fe.Value())
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}

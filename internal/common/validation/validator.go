package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator runs struct-tag rule sets and reports violations by JSON field name.
type Validator struct {
	validate *validator.Validate
	messages map[string]string
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v, messages: map[string]string{}}
}

// WithMessage overrides the message reported when rule tag fails on field. Indexed fields
// such as notification_method[1] match their base name.
func (v *Validator) WithMessage(field, tag, message string) *Validator {
	v.messages[field+"|"+tag] = message
	return v
}

// Struct validates s and returns violations in struct field order.
func (v *Validator) Struct(s interface{}) *ValidationResult {
	err := v.validate.Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "body", Message: err.Error(), Code: CodeInvalidDocument}},
		}
	}

	out := &ValidationResult{Valid: false}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   baseField(fe.Field()),
			Message: v.message(fe),
			Code:    codeForTag(fe.Tag()),
		})
	}
	return out
}

func (v *Validator) message(fe validator.FieldError) string {
	if msg, ok := v.messages[baseField(fe.Field())+"|"+fe.Tag()]; ok {
		return msg
	}

	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is absent", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
}

func codeForTag(tag string) string {
	switch tag {
	case "required", "required_without":
		return CodeRequiredFieldMissing
	case "oneof":
		return CodeInvalidEnumValue
	case "min":
		return CodeMinItemsViolation
	}
	return CodeConstraintViolation
}

// baseField strips a trailing index: notification_method[0] -> notification_method.
func baseField(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		return field[:i]
	}
	return field
}

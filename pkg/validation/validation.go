// Package validation is the request boundary: decoded DTOs are checked here
// before they reach services, and closed enumerations are rejected early.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// Custom validation tags usable in DTO struct tags.
const (
	TagNotBlank          = "notblank"
	TagRole              = "role"
	TagSupervisionStatus = "supervision_status"
	TagIndicatorLevel    = "indicator_level"
	TagPolicyType        = "policy_type"
	TagImprovementStatus = "improvement_status"
)

// Validator wraps a configured validator/v10 instance with English messages.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a Validator that reports JSON field names and knows the domain enums.
func New() *Validator {
	validate := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate, translator: translator}

	v.register(TagNotBlank, "{0} cannot be blank", notBlank)
	v.register(TagRole, "{0} must be one of ADMIN, SUPERVISOR, SCHOOL, EXECUTIVE",
		enumOf(func(s string) bool { return models.Role(s).IsValid() }))
	v.register(TagSupervisionStatus, "{0} must be one of DRAFT, SUBMITTED, APPROVED, PUBLISHED, NEEDS_IMPROVEMENT",
		enumOf(func(s string) bool { return models.SupervisionStatus(s).IsValid() }))
	v.register(TagIndicatorLevel, "{0} must be one of EXCELLENT, GOOD, FAIR, NEEDS_WORK",
		enumOf(func(s string) bool { return models.IndicatorLevel(s).IsValid() }))
	v.register(TagPolicyType, "{0} is not a known policy type",
		enumOf(func(s string) bool { return models.PolicyType(s).IsValid() }))
	v.register(TagImprovementStatus, "{0} must be one of pending, approved, completed",
		enumOf(func(s string) bool { return models.ImprovementStatus(s).IsValid() }))

	// Override the default wording for required fields.
	v.translation("required", "{0} is required", true)

	return v
}

func (v *Validator) register(tag, text string, fn validator.Func) {
	_ = v.validate.RegisterValidation(tag, fn)
	v.translation(tag, text, false)
}

func (v *Validator) translation(tag, text string, override bool) {
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates a DTO. Failures come back as *apperrors.ValidationError
// with one FieldError per offending field, keyed by its JSON path.
func (v *Validator) Struct(dto any) error {
	err := v.validate.Struct(dto)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error())
	}

	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field: fieldPath(fe.Namespace()),
			Error: fe.Translate(v.translator),
		})
	}
	return apperrors.NewValidationError("Invalid request", fields...)
}

// fieldPath drops the root struct name from a validator namespace,
// "createSupervisionRequest.indicators[0].level" becomes "indicators[0].level".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// Custom validators

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// enumOf adapts a membership check to a string or named-string field.
// Empty values pass; combine with required when the field is mandatory.
func enumOf(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		s := field.String()
		return s == "" || valid(s)
	}
}

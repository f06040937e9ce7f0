// Package validate checks form input structs and reports every offending field at once.
package validate

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/duedate"
)

var (
	codeRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
	moneyRegex = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	phoneRegex = regexp.MustCompile(`^[0-9+()\-. ]{7,20}$`)
)

// custom tags and their messages
var customTags = []struct {
	tag  string
	text string
	fn   validator.Func
}{
	{"date", "{0} must be a date in YYYY-MM-DD format", isDate},
	{"days", "{0} must be a whole number of days from 0 to 36500", isDays},
	{"id", "{0} must be a valid selection", isID},
	{"money", "{0} must be an amount such as 125.50", isMoney},
	{"code", "{0} may only contain letters, numbers, dashes and underscores", isCode},
	{"phone", "{0} must be a valid phone number", isPhone},
}

// Validator wraps a go-playground validator with English messages keyed by form field name.
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

// New builds a Validator.
func New() *Validator {
	v := validator.New()
	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Report errors under the form field name rather than the Go name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	for _, ct := range customTags {
		_ = v.RegisterValidation(ct.tag, ct.fn)
		registerTranslation(v, trans, ct.tag, ct.text, false)
	}
	registerTranslation(v, trans, "required", "{0} is required", true)
	registerTranslation(v, trans, "required_if", "{0} is required", true)

	return &Validator{v: v, trans: trans}
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string, override bool) {
	_ = v.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns one FieldError per failing field.
func (val *Validator) Struct(s any) Errors {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return Errors{{Field: "_", Message: err.Error()}}
	}
	var errs Errors
	for _, fe := range ves {
		errs.Add(fe.Field(), fe.Translate(val.trans))
	}
	return errs
}

var std = New()

// Struct validates s with the shared Validator.
func Struct(s any) Errors {
	return std.Struct(s)
}

// Errors accumulates field errors across struct validation and business rules.
type Errors []apperr.FieldError

// Add records a problem with field. Only the first problem per field is kept.
func (e *Errors) Add(field, message string) {
	if e.Has(field) {
		return
	}
	*e = append(*e, apperr.FieldError{Field: field, Message: message})
}

// Has reports whether field already has an error.
func (e Errors) Has(field string) bool {
	for _, f := range e {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns a VALIDATION_ERROR, or nil when there are no field errors.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return apperr.Validation(e...)
}

func isDate(fl validator.FieldLevel) bool {
	_, err := duedate.Parse(fl.Field().String())
	return err == nil
}

func isDays(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Field().String())
	return err == nil && n >= 0 && n <= duedate.MaxDays
}

func isID(fl validator.FieldLevel) bool {
	n, err := strconv.ParseInt(fl.Field().String(), 10, 64)
	return err == nil && n > 0
}

func isMoney(fl validator.FieldLevel) bool {
	if !moneyRegex.MatchString(fl.Field().String()) {
		return false
	}
	_, err := Cents(fl.Field().String())
	return err == nil
}

func isCode(fl validator.FieldLevel) bool {
	return codeRegex.MatchString(fl.Field().String())
}

func isPhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

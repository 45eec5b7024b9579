package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// Validator. go-playground validator with english messages registered once.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewValidator() *Validator {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
	return &Validator{validate: validate, trans: trans}
}

func (v *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	v.validate.RegisterStructValidation(fn, types...)
}

// Struct validates s and returns an ErrBadParamInput error listing every failed field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	msgs := TranslateError(err, v.trans)
	return WrapErrorf(nil, ErrBadParamInput, "validation error: [%s]", strings.Join(msgs, ", "))
}

func TranslateError(err error, trans ut.Translator) []string {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(validatorErrs))
	for _, e := range validatorErrs {
		msg := e.Translate(trans)
		if msg == "" {
			msg = fmt.Sprintf("%s is invalid", e.Namespace())
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

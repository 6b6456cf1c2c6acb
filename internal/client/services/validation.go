package services

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/client/idp"
	validation "github.com/go-ozzo/ozzo-validation"
)

const minPasswordLength = 8

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

func validateIdentifier(identifier string) error {
	err := validation.Validate(identifier, validation.Required.Error(msgEnterEmail))
	return asValidationError(err)
}

func validateCode(code, message string) error {
	err := validation.Validate(code,
		validation.Required.Error(message),
		validation.Match(codePattern).Error(message),
	)
	return asValidationError(err)
}

func validateCredentials(identifier, password string) error {
	for _, v := range []string{identifier, password} {
		if err := validation.Validate(v, validation.Required.Error(msgFillAllFields)); err != nil {
			return asValidationError(err)
		}
	}
	return nil
}

type signUpForm idp.SignUpParams

func validateSignUp(p idp.SignUpParams) error {
	f := signUpForm(p)
	err := validation.ValidateStruct(&f,
		validation.Field(&f.EmailAddress, validation.Required),
		validation.Field(&f.Password, validation.Required),
		validation.Field(&f.FirstName, validation.Required),
		validation.Field(&f.LastName, validation.Required),
	)
	if err != nil {
		return &ValidationError{Message: msgFillAllFields, Err: err}
	}
	return nil
}

// validateNewPassword checks presence first, then equality, then length.
func validateNewPassword(password, confirm string) error {
	for _, v := range []string{password, confirm} {
		if err := validation.Validate(v, validation.Required.Error(msgFillAllFields)); err != nil {
			return asValidationError(err)
		}
	}

	err := validation.Validate(password,
		validation.By(stringEquals(confirm)),
		validation.By(minRunes(minPasswordLength)),
	)
	return asValidationError(err)
}

func stringEquals(other string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != other {
			return errors.New(msgPasswordsMismatch)
		}
		return nil
	}
}

func minRunes(n int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if utf8.RuneCountInString(s) < n {
			return errors.New(msgPasswordTooShort)
		}
		return nil
	}
}

func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Message: err.Error(), Err: err}
}

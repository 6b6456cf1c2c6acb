package services

import (
	"errors"
	"net"
	"net/url"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const minPasswordLength = 8

// RFC 7636 code challenge: base64url without padding.
var challengePattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

// SignUpParams is a new account awaiting email verification.
type SignUpParams struct {
	Email     string `json:"email_address"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func validateSignUp(p SignUpParams) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(minPasswordLength, 0)),
		validation.Field(&p.FirstName, validation.Required),
		validation.Field(&p.LastName, validation.Required),
	)
	return asValidationError(err)
}

func validateSignIn(email, password string) error {
	err := validation.Validate(email, validation.Required.Error("enter your email address"))
	if err == nil {
		err = validation.Validate(password, validation.Required.Error("enter your password"))
	}
	return asValidationError(err)
}

func validateEmail(email string) error {
	return asValidationError(validation.Validate(email,
		validation.Required.Error("enter your email address"),
		is.Email,
	))
}

func validatePassword(password string) error {
	return asValidationError(validation.Validate(password,
		validation.Required.Error("enter a new password"),
		validation.Length(minPasswordLength, 0).Error("password must be at least 8 characters"),
	))
}

func validateFederatedStart(redirectURL, codeChallenge string) error {
	err := validation.Validate(redirectURL,
		validation.Required,
		is.URL,
		validation.By(loopbackURL),
	)
	if err == nil {
		err = validation.Validate(codeChallenge,
			validation.Required,
			validation.Match(challengePattern).Error("must be an S256 code challenge"),
		)
	}
	return asValidationError(err)
}

// loopbackURL accepts http URLs on the local machine only; the CLI
// receives the callback on a loopback listener.
func loopbackURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" {
		return errors.New("must use http")
	}
	host := u.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return errors.New("must point to a loopback address")
}

func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Message: err.Error(), Err: err}
}

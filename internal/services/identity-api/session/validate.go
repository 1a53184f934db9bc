package session

import (
	"errors"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

// MinPasswordLen counts characters, not bytes.
const MinPasswordLen = 8

type credentialsInput struct {
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,min=8,password"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required"`
}

type newPasswordInput struct {
	Password string `json:"password" validate:"required,min=8,password"`
}

type googleInput struct {
	IDToken string `json:"id_token" validate:"required"`
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

var labels = map[string]string{
	"email":         "Email",
	"password":      "Password",
	"id_token":      "Google ID token",
	"refresh_token": "Refresh token",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return len(passwordComposition(fl.Field().String())) == 0
	}); err != nil {
		panic(err)
	}
	return v
}

// passwordComposition lists the character classes pw is missing.
func passwordComposition(pw string) []string {
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	var out []string
	if !upper {
		out = append(out, "Password must contain an uppercase letter")
	}
	if !lower {
		out = append(out, "Password must contain a lowercase letter")
	}
	if !digit {
		out = append(out, "Password must contain a digit")
	}
	return out
}

// passwordProblems reports every rule pw breaks, so a caller sees them all at once.
func passwordProblems(pw string) []string {
	var out []string
	if utf8.RuneCountInString(pw) < MinPasswordLen {
		out = append(out, "Password must be at least 8 characters long")
	}
	return append(out, passwordComposition(pw)...)
}

func messagesFor(fe validator.FieldError) []string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return []string{label + " is required"}
	case "max":
		return []string{label + " is too long"}
	case "email":
		return []string{label + " is not a valid email address"}
	case "min", "password":
		if fe.Field() == "password" {
			pw, _ := fe.Value().(string)
			return passwordProblems(pw)
		}
	}
	return []string{label + " is invalid"}
}

// check runs the struct rules on in and folds failures into a
// ValidationError keyed by json field name.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return err
	}
	ve := domainsession.NewValidationError()
	for _, fe := range fes {
		for _, msg := range messagesFor(fe) {
			ve.Add(fe.Field(), msg)
		}
	}
	return ve.OrNil()
}

func validateCredentials(email, password string) error {
	return check(credentialsInput{Email: strings.TrimSpace(email), Password: password})
}

// validateLogin only checks presence; rules for new passwords do not apply
// to existing ones.
func validateLogin(email, password string) error {
	return check(loginInput{Email: strings.TrimSpace(email), Password: password})
}

func validateGoogleToken(idToken string) error {
	return check(googleInput{IDToken: strings.TrimSpace(idToken)})
}

func validateRefreshToken(token string) error {
	return check(refreshInput{RefreshToken: strings.TrimSpace(token)})
}

// ValidateNewPassword applies the rules a password must meet when it is set.
func ValidateNewPassword(password string) error {
	return check(newPasswordInput{Password: password})
}

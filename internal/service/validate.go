package service

import "github.com/gatehouse/gatehouse/internal/config"

type validator struct {
	accounts *config.AccountsConfig
}

func (v validator) password(password string) error {
	if !v.accounts.PasswordRule.MatchString(password) {
		return errInvalidPasswordFormat
	}
	return nil
}

func (v validator) email(email string) error {
	if !v.accounts.EmailRule.MatchString(email) {
		return errInvalidEmailFormat
	}
	return nil
}

func (v validator) phone(phone string) error {
	if !v.accounts.PhoneRule.MatchString(phone) {
		return errInvalidPhoneFormat
	}
	return nil
}

// isEmail decides the channel for a bare username, e.g. on login or recovery.
func (v validator) isEmail(username string) bool {
	return v.accounts.EmailRule.MatchString(username)
}

package service

import "github.com/thanhpk/randstr"

// Secret token lengths. Email-delivered tokens ride inside links so they can
// be long; phone-delivered ones are typed by hand and stay short.
const (
	emailTokenLength      = 100
	phoneCodeLength       = 6
	phoneInvitationLength = 12
	refreshTokenLength    = 50
)

func newEmailToken() string {
	return randstr.String(emailTokenLength)
}

func newPhoneCode() string {
	return randstr.Dec(phoneCodeLength)
}

func newPhoneInvitationToken() string {
	return randstr.String(phoneInvitationLength)
}

func newRefreshTokenValue() string {
	return randstr.String(refreshTokenLength)
}

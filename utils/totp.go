package utils

import (
	"github.com/pquerna/otp/totp"
)

const TOTPIssuer = "DayClap"

// GenerateTOTPSecret returns the base32 secret and the otpauth:// URL used
// to render the enrolment QR code.
func GenerateTOTPSecret(email string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: email,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func VerifyTOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

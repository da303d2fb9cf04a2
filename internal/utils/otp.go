package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"strings"
)

// OTPLength is the number of digits in an emailed verification code
const OTPLength = 4

// GenerateOTP generates a numeric one-time code of the given length.
// Each digit is drawn independently; the modulo bias is acceptable for a
// short-lived email verification code.
func GenerateOTP(length int) string {
	if length <= 0 {
		length = OTPLength
	}
	b := make([]byte, length)
	rand.Read(b)

	var builder strings.Builder
	for _, v := range b {
		builder.WriteByte(v%10 + '0')
	}
	return builder.String()
}

// VerifyOTP compares a submitted code with the stored one in constant time
func VerifyOTP(submitted, stored string) bool {
	return stored != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}

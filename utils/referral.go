package utils

import (
	"bytes"
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// GenerateReferralCode generates a unique referral code for a user.
// Format: USR-{RANDOM} where RANDOM is 6 alphanumeric characters.
func GenerateReferralCode() (string, error) {
	randomBytes := make([]byte, 4)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = strings.ToUpper(randomStr[:6])

	return "USR-" + randomStr, nil
}

// GenerateReferralQRCode renders a referral code as a QR code and returns
// it as a base64 PNG data URI for embedding in responses.
func GenerateReferralQRCode(referralCode string) (string, error) {
	qrCode, err := qr.Encode(referralCode, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}

	qrCode, err = barcode.Scale(qrCode, 300, 300)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qrCode); err != nil {
		return "", err
	}

	base64QR := base64.StdEncoding.EncodeToString(buf.Bytes())
	return "data:image/png;base64," + base64QR, nil
}

package services

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	accessKeyPrefix = "bkmstr_"
	deviceKeyPrefix = "bkm_dev_"
)

// GenerateAccessKey returns a fresh high-entropy bearer key for an account.
func GenerateAccessKey() string {
	return accessKeyPrefix + randomToken(32)
}

// GenerateDeviceKey returns a fresh device identity issued on activation.
func GenerateDeviceKey() string {
	return deviceKeyPrefix + randomToken(32)
}

func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

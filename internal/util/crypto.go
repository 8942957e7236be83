package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	tokenBytes = 32

	// PairingCodeChars excludes O, I, 0 and 1 so codes survive being read aloud.
	PairingCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	PairingCodeLength = 8
)

func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func GeneratePairingCode() (string, error) {
	max := big.NewInt(int64(len(PairingCodeChars)))
	out := make([]byte, PairingCodeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate pairing code: %w", err)
		}
		out[i] = PairingCodeChars[n.Int64()]
	}
	return string(out), nil
}

// FormatCode renders an 8 character code as XXXX-XXXX for display.
func FormatCode(code string) string {
	if len(code) != PairingCodeLength {
		return code
	}
	return code[:4] + "-" + code[4:]
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func MaskCode(code string) string {
	if len(code) <= 4 {
		return "****"
	}
	return code[:4] + "-****"
}

package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest secret accepted when a password is set.
const MinPasswordLength = 6

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// BurnPasswordCheck runs a bcrypt comparison against a throwaway hash of the
// given cost and discards the result.  Login calls it when no principal
// matches so unknown and known identities take about the same time.
func BurnPasswordCheck(plain string, cost int) {
	dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer-not-a-password"), cost)
		if err == nil {
			dummyHash = h
		}
	})
	if dummyHash == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

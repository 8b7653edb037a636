package user

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher defines the minimal hashing interface (abstract so we can
// swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

var defaultHasher PasswordHasher = BcryptHasher{Cost: 12}

// HashPassword hashes with the package default hasher.
func HashPassword(pw string) (string, error) { return defaultHasher.Hash(pw) }

// VerifyPassword checks a candidate password against a stored hash.
func VerifyPassword(hash, pw string) bool { return defaultHasher.Verify(hash, pw) }

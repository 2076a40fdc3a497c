package security

import "golang.org/x/crypto/bcrypt"

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned for passwords bcrypt would reject.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hash password hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.
// An empty hash (federated accounts) never matches.

func CheckPassword(hash, plain string) error {
	if hash == "" {
		return bcrypt.ErrHashTooShort
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

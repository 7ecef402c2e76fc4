package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// staffHashCost is the bcrypt work factor for staff account passwords.
const staffHashCost = bcrypt.DefaultCost

// bcrypt silently truncates input past 72 bytes; reject instead so a staff
// member never has a longer password than the part that is actually checked.
const maxPasswordBytes = 72

// HashPassword hashes a staff password for storage in staff_users.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	if len(password) > maxPasswordBytes {
		return "", errors.New("password exceeds 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), staffHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a login attempt with the stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

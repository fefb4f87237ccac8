package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt = "bcrypt"
	// SchemeToken stores a random token unrelated to the submitted password.
	// Passwords typed at registration therefore never authenticate.
	SchemeToken = "token"

	tokenBytes = 16
)

// CredentialScheme derives the stored credential for a new user and checks
// submitted passwords against it.
type CredentialScheme interface {
	Name() string
	Derive(password string) (string, error)
	Verify(stored, password string) bool
}

// NewCredentialScheme returns the scheme registered under name.
func NewCredentialScheme(name string, bcryptCost int) (CredentialScheme, error) {
	switch name {
	case "", SchemeBcrypt:
		if bcryptCost == 0 {
			bcryptCost = bcrypt.DefaultCost
		}
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
		}
		return bcryptScheme{cost: bcryptCost}, nil
	case SchemeToken:
		return tokenScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown credential scheme %q", name)
	}
}

type bcryptScheme struct {
	cost int
}

func (s bcryptScheme) Name() string { return SchemeBcrypt }

func (s bcryptScheme) Derive(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(prehash(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s bcryptScheme) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), prehash(password)) == nil
}

// prehash folds a password of any length into 44 bytes, under bcrypt's
// 72-byte input limit.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

type tokenScheme struct{}

func (tokenScheme) Name() string { return SchemeToken }

func (tokenScheme) Derive(string) (string, error) {
	var buf [tokenBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

func (tokenScheme) Verify(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

package services

import "golang.org/x/crypto/bcrypt"

// CredentialVerifier hashes and checks channel passwords.
type CredentialVerifier interface {
	Hash(secret string) (string, error)
	Verify(hash, secret string) bool
}

type BcryptVerifier struct {
	Cost int
}

func (v BcryptVerifier) Hash(secret string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	raw, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (v BcryptVerifier) Verify(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

var Credentials CredentialVerifier = BcryptVerifier{}

package token

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// KeyPair holds the RS256 signing material, loaded once at startup and
// read-only afterwards.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadKeys parses the key pair from inline PEM, falling back to files when
// the inline material is empty.
func LoadKeys(privatePEM, publicPEM, privateFile, publicFile string) (KeyPair, error) {
	privateBytes := []byte(privatePEM)
	if len(privateBytes) == 0 {
		b, err := os.ReadFile(privateFile)
		if err != nil {
			return KeyPair{}, fmt.Errorf("read private key: %w", err)
		}
		privateBytes = b
	}

	publicBytes := []byte(publicPEM)
	if len(publicBytes) == 0 {
		b, err := os.ReadFile(publicFile)
		if err != nil {
			return KeyPair{}, fmt.Errorf("read public key: %w", err)
		}
		publicBytes = b
	}

	private, err := jwt.ParseRSAPrivateKeyFromPEM(privateBytes)
	if err != nil {
		return KeyPair{}, fmt.Errorf("parse private key: %w", err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(publicBytes)
	if err != nil {
		return KeyPair{}, fmt.Errorf("parse public key: %w", err)
	}

	return KeyPair{Private: private, Public: public}, nil
}

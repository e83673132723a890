package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig selects the token signing algorithm family and carries the key
// material for it. Keys are resolved once by loadKeys at startup.
type JWTConfig struct {
	Alg            string   `env:"ALGORITHM,default=HS256"`
	Secret         string   `env:"SECRET,default="`
	PrivateKeyPath string   `env:"PRIVATE_KEY_PATH,default="`
	PublicKeyPath  string   `env:"PUBLIC_KEY_PATH,default="`
	Aud            string   `env:"AUD,default=gatehouse"`
	Iss            string   `env:"ISS,default=gatehouse"`
	// Exp is the access token lifetime. Zero or negative means tokens never expire.
	Exp Duration `env:"EXP,default=15m"`

	signingKey      any
	verificationKey any
}

// SigningMethod returns the configured jwt.SigningMethod
func (j *JWTConfig) SigningMethod() jwt.SigningMethod {
	return jwt.GetSigningMethod(j.Alg)
}

// SigningKey returns the key used to sign tokens
func (j *JWTConfig) SigningKey() any {
	return j.signingKey
}

// VerificationKey returns the key used to verify token signatures. For HMAC it
// is the shared secret, for RSA/ECDSA the public key.
func (j *JWTConfig) VerificationKey() any {
	return j.verificationKey
}

func (j *JWTConfig) loadKeys() error {
	switch {
	case strings.HasPrefix(j.Alg, "HS"):
		return j.loadHMAC()
	case strings.HasPrefix(j.Alg, "RS"):
		return j.loadRSA()
	case strings.HasPrefix(j.Alg, "ES"):
		return j.loadECDSA()
	default:
		return fmt.Errorf("unsupported jwt algorithm: %s", j.Alg)
	}
}

func (j *JWTConfig) loadHMAC() error {
	if len(j.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long for %s", j.Alg)
	}

	j.signingKey = []byte(j.Secret)
	j.verificationKey = []byte(j.Secret)

	return nil
}

func (j *JWTConfig) loadRSA() error {
	pemBytes, err := os.ReadFile(j.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read rsa private key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return fmt.Errorf("failed to parse rsa private key: %w", err)
	}

	j.signingKey = privateKey

	publicKey, err := j.readPublicKey()
	if err != nil {
		return err
	}
	if publicKey == nil {
		j.verificationKey = &privateKey.PublicKey
		return nil
	}

	rsaPub, err := jwt.ParseRSAPublicKeyFromPEM(publicKey)
	if err != nil {
		return fmt.Errorf("failed to parse rsa public key: %w", err)
	}
	j.verificationKey = rsaPub

	return nil
}

func (j *JWTConfig) loadECDSA() error {
	pemBytes, err := os.ReadFile(j.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read ecdsa private key: %w", err)
	}

	privateKey, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return fmt.Errorf("failed to parse ecdsa private key: %w", err)
	}

	j.signingKey = privateKey

	publicKey, err := j.readPublicKey()
	if err != nil {
		return err
	}
	if publicKey == nil {
		j.verificationKey = &privateKey.PublicKey
		return nil
	}

	ecPub, err := jwt.ParseECPublicKeyFromPEM(publicKey)
	if err != nil {
		return fmt.Errorf("failed to parse ecdsa public key: %w", err)
	}
	j.verificationKey = ecPub

	return nil
}

func (j *JWTConfig) readPublicKey() ([]byte, error) {
	if j.PublicKeyPath == "" {
		return nil, nil
	}

	pemBytes, err := os.ReadFile(j.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}

	return pemBytes, nil
}

// UseKeys injects pre-parsed key material directly, bypassing the PEM files.
// Intended for tests that build configs without touching the filesystem.
func (j *JWTConfig) UseKeys(signing, verification any) {
	j.signingKey = signing
	j.verificationKey = verification
}

// Package auth implements the versioned password bundle codec.
//
// A bundle is a self-describing JSON blob {version, salt, secret} with
// the salt and derived secret base64-encoded. Version 1 derives the
// secret with scrypt. The format is stable: bundles written by earlier
// deployments keep verifying.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"

	"golang.org/x/crypto/scrypt"
)

const (
	bundleVersion = 1
	saltBytes     = 32
	secretBytes   = 64

	scryptN = 1 << 14
	scryptR = 8
	scryptP = 4
)

type bundle struct {
	Version int    `json:"version"`
	Salt    string `json:"salt"`
	Secret  string `json:"secret"`
}

// EncodePassword derives a fresh salted secret from the password and
// wraps it in a version-1 bundle.
func EncodePassword(password []byte) ([]byte, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	secret, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, secretBytes)
	if err != nil {
		return nil, err
	}

	return json.Marshal(bundle{
		Version: bundleVersion,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Secret:  base64.StdEncoding.EncodeToString(secret),
	})
}

// VerifyPassword checks a candidate password against a previously
// encoded bundle. A malformed or unknown-version bundle fails closed:
// the answer is false, never a panic or an error.
func VerifyPassword(password, secretBundle []byte) bool {
	var b bundle
	if err := json.Unmarshal(secretBundle, &b); err != nil {
		return false
	}
	if b.Version != bundleVersion {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(b.Salt)
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(b.Secret)
	if err != nil {
		return false
	}

	got, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, secretBytes)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(got, want) == 1
}

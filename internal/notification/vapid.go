package notification

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/microtrax/microtrax/internal/logger"
)

const (
	vapidPublicKeyLen  = 65
	vapidPrivateKeyLen = 32
	uncompressedPoint  = 0x04
)

// VAPIDKeys is an application server key pair, both halves unpadded
// URL-safe base64.
type VAPIDKeys struct {
	PublicKey  string `json:"public_key" yaml:"public_key"`
	PrivateKey string `json:"private_key" yaml:"private_key"`
}

// GenerateVAPIDKeys returns a P-256 key pair from the web-push library. When
// the library is not compiled in, or its output is malformed, it returns
// random keys of the right shape instead. Those keys cannot sign anything
// but keep development setups working.
func GenerateVAPIDKeys() (VAPIDKeys, error) {
	log := getLogger()

	if generateLibraryVAPIDKeys != nil {
		priv, pub, err := generateLibraryVAPIDKeys()
		if err == nil {
			if keys, ok := normalizeVAPIDKeys(pub, priv); ok {
				log.Info("generated VAPID keys",
					logger.Int("public_key_length", len(keys.PublicKey)),
					logger.Int("private_key_length", len(keys.PrivateKey)))
				return keys, nil
			}
			log.Warn("web push library returned malformed VAPID keys, using fallback keys")
		} else {
			log.Warn("web push library failed to generate VAPID keys, using fallback keys", logger.Error(err))
		}
	} else {
		log.Warn("cannot generate proper VAPID keys: web push support is not available in this build")
	}

	return fallbackVAPIDKeys()
}

// fallbackVAPIDKeys is 0x04 followed by 64 random bytes for the public key
// and 32 random bytes for the private key.
func fallbackVAPIDKeys() (VAPIDKeys, error) {
	pub := make([]byte, vapidPublicKeyLen)
	pub[0] = uncompressedPoint
	if _, err := rand.Read(pub[1:]); err != nil {
		return VAPIDKeys{}, fmt.Errorf("generate fallback VAPID public key: %w", err)
	}
	priv := make([]byte, vapidPrivateKeyLen)
	if _, err := rand.Read(priv); err != nil {
		return VAPIDKeys{}, fmt.Errorf("generate fallback VAPID private key: %w", err)
	}
	return VAPIDKeys{
		PublicKey:  base64.RawURLEncoding.EncodeToString(pub),
		PrivateKey: base64.RawURLEncoding.EncodeToString(priv),
	}, nil
}

// normalizeVAPIDKeys checks the decoded shape of a key pair and re-encodes
// it as unpadded URL-safe base64.
func normalizeVAPIDKeys(pub, priv string) (VAPIDKeys, bool) {
	pubBytes, err := decodeKey(pub)
	if err != nil || len(pubBytes) != vapidPublicKeyLen || pubBytes[0] != uncompressedPoint {
		return VAPIDKeys{}, false
	}
	privBytes, err := decodeKey(priv)
	if err != nil || len(privBytes) != vapidPrivateKeyLen {
		return VAPIDKeys{}, false
	}
	return VAPIDKeys{
		PublicKey:  base64.RawURLEncoding.EncodeToString(pubBytes),
		PrivateKey: base64.RawURLEncoding.EncodeToString(privBytes),
	}, true
}

// decodeKey accepts URL-safe or standard base64 with or without padding.
func decodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}

// ValidVAPIDKey reports whether s looks like a usable key: at least 16
// characters of unpadded URL-safe base64.
func ValidVAPIDKey(s string) bool {
	if len(s) < 16 || strings.ContainsAny(s, "=+/") {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

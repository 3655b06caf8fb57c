package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is the generic signing primitive the Manifest Assembler's
// optional signing feature calls (SPEC_FULL §11): it signs arbitrary
// bytes, never a specific record type.
type Signer interface {
	Sign(data []byte) (string, error)
	Verify(message []byte, signature []byte) bool
	PublicKey() string
	PublicKeyBytes() []byte
}

// Ed25519Signer implements Signer over a single Ed25519 keypair.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	KeyID   string
}

func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: key generation failed: %w", err)
	}
	return &Ed25519Signer{privKey: priv, pubKey: pub, KeyID: keyID}, nil
}

func NewEd25519SignerFromKey(priv ed25519.PrivateKey, keyID string) *Ed25519Signer {
	return &Ed25519Signer{privKey: priv, pubKey: priv.Public().(ed25519.PublicKey), KeyID: keyID}
}

func (s *Ed25519Signer) Sign(data []byte) (string, error) {
	sig := ed25519.Sign(s.privKey, data)
	return hex.EncodeToString(sig), nil
}

func (s *Ed25519Signer) PublicKey() string {
	return hex.EncodeToString(s.pubKey)
}

func (s *Ed25519Signer) PublicKeyBytes() []byte {
	return s.pubKey
}

func (s *Ed25519Signer) Verify(message []byte, signature []byte) bool {
	return ed25519.Verify(s.pubKey, message, signature)
}

// Verify checks a hex-encoded signature against a hex-encoded public
// key, for callers that only hold the serialized forms.
func Verify(pubKeyHex, sigHex string, data []byte) (bool, error) {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("crypto: invalid public key hex: %w", err)
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("crypto: invalid signature hex: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("crypto: invalid public key size")
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), data, sig), nil
}

// manifestClaims is the minimal JWS payload embedding a manifest's
// deterministic-projection hash, so the signature never touches any
// hashed field itself.
type manifestClaims struct {
	jwt.RegisteredClaims
	DeterministicHash string `json:"deterministic_hash"`
}

// SignManifestHash produces a compact JWS token over deterministicHash,
// for embedding in a manifest's full-projection-only signature field.
func (s *Ed25519Signer) SignManifestHash(deterministicHash string) (string, error) {
	claims := manifestClaims{DeterministicHash: deterministicHash}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = s.KeyID
	return token.SignedString(s.privKey)
}

// VerifyManifestHash checks a compact JWS token produced by
// SignManifestHash and returns the embedded hash if valid.
func VerifyManifestHash(tokenString string, pubKey ed25519.PublicKey) (string, error) {
	claims := &manifestClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return pubKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return "", fmt.Errorf("crypto: parse manifest signature: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("crypto: invalid manifest signature")
	}
	return claims.DeterministicHash, nil
}

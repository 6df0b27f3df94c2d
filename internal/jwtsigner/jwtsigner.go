package jwtsigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
)

const (
	AlgHS256 = "HS256"
	AlgEdDSA = "EdDSA"
)

// Claims carried by access tokens. SessionID binds the token to the refresh
// token it was minted with.
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies short-lived access tokens.
type Signer struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	public    ed25519.PublicKey
	KeyID     string
	Issuer    string
	Audience  string
	now       func() time.Time
}

// NewHS256 builds a shared-secret signer.
func NewHS256(secret []byte, kid, iss, aud string) (*Signer, error) {
	if len(secret) < 32 {
		return nil, errors.New("hs256 secret must be at least 32 bytes")
	}
	return &Signer{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		KeyID:     kid,
		Issuer:    iss,
		Audience:  aud,
	}, nil
}

// NewEd25519FromBase64 creates a signer from base64-encoded ed25519 private key bytes.
// If privB64 is empty, it generates an ephemeral key (good for local dev).
func NewEd25519FromBase64(privB64, kid, iss, aud string) (*Signer, error) {
	var priv ed25519.PrivateKey
	if privB64 == "" {
		_, generated, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		priv = generated
	} else {
		raw, err := base64.StdEncoding.DecodeString(privB64)
		if err != nil {
			return nil, err
		}
		if len(raw) != ed25519.PrivateKeySize {
			return nil, errors.New("invalid ed25519 private key size")
		}
		priv = ed25519.PrivateKey(raw)
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Signer{
		method:    jwt.SigningMethodEdDSA,
		signKey:   priv,
		verifyKey: pub,
		public:    pub,
		KeyID:     kid,
		Issuer:    iss,
		Audience:  aud,
	}, nil
}

func (s *Signer) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Sign issues a token for c.Subject valid for ttl. Registered claims other
// than the subject are filled in here.
func (s *Signer) Sign(c Claims, ttl time.Duration) (string, time.Time, error) {
	now := s.clock()
	exp := now.Add(ttl)
	c.Issuer = s.Issuer
	if s.Audience != "" {
		c.Audience = jwt.ClaimStrings{s.Audience}
	}
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(exp)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	t := jwt.NewWithClaims(s.method, c)
	if s.KeyID != "" {
		t.Header["kid"] = s.KeyID
	}
	signed, err := t.SignedString(s.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	// NumericDate truncates to seconds; report what the token carries.
	return signed, c.ExpiresAt.Time, nil
}

// Verify checks signature, issuer, audience and expiry.
func (s *Signer) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	}
	if s.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.Audience))
	}
	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
}

// PublicJWK renders the public part as JWK for the JWKS endpoint. Shared-secret
// signers have nothing to publish.
func (s *Signer) PublicJWK() (map[string]any, bool) {
	if s.public == nil {
		return nil, false
	}
	return map[string]any{
		"kty": "OKP",
		"crv": "Ed25519",
		"alg": "EdDSA",
		"use": "sig",
		"kid": s.KeyID,
		"x":   base64.RawURLEncoding.EncodeToString(s.public),
	}, true
}

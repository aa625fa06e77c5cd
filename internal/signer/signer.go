// Package signer mints the short-lived bearer tokens that authenticate
// individual custody API requests.
package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vaultfolio/vaultfolio/internal/credentials"
)

// tokenTTL is fixed by the custody provider. Tokens are single-use: a fresh
// nonce and timestamp pair is minted for every outbound call.
const tokenTTL = 55 * time.Second

// Signer signs request-bound JWTs with one workspace's private key.
type Signer struct {
	creds credentials.WorkspaceCredentials
}

// New creates a Signer for the given workspace credentials.
func New(creds credentials.WorkspaceCredentials) *Signer {
	return &Signer{creds: creds}
}

// Token builds and signs a bearer token bound to the request's URI, method
// and body. bodyHash is included only for non-GET requests carrying a body.
func (s *Signer) Token(uri, method string, body []byte) (string, error) {
	if !s.creds.Enabled || s.creds.PrivateKey == nil {
		return "", &credentials.KeyMaterialError{
			Workspace: s.creds.Workspace,
			Reason:    "no usable signing key configured",
		}
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"uri":   uri,
		"nonce": uuid.New().String(),
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
		"sub":   s.creds.APIKey,
	}
	if method != http.MethodGet && len(body) > 0 {
		sum := sha256.Sum256(body)
		claims["bodyHash"] = hex.EncodeToString(sum[:])
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.creds.PrivateKey)
}

// Package credentials resolves per-workspace custody API credentials from
// configuration into immutable capability objects used for request signing.
package credentials

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vaultfolio/vaultfolio/internal/config"
	"github.com/vaultfolio/vaultfolio/internal/domain"
)

// KeyMaterialError reports missing or malformed credential material for a
// workspace. It is fatal for that workspace only, never for a whole report.
type KeyMaterialError struct {
	Workspace domain.Workspace
	Reason    string
	Err       error
}

func (e *KeyMaterialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("key material for workspace %s: %s: %v", e.Workspace, e.Reason, e.Err)
	}
	return fmt.Sprintf("key material for workspace %s: %s", e.Workspace, e.Reason)
}

func (e *KeyMaterialError) Unwrap() error { return e.Err }

// WorkspaceCredentials is the resolved credential set for one workspace.
// Immutable for the process lifetime once resolved. A disabled workspace
// means "no accounts available", not an error.
type WorkspaceCredentials struct {
	Workspace  domain.Workspace
	APIKey     string
	PrivateKey *rsa.PrivateKey
	BaseURL    string
	Enabled    bool
}

// ResolveWorkspace resolves credentials for a single workspace config.
// Key material is taken from the base64 bundle first, then the PEM variable.
// Absent material disables the workspace; malformed material is a
// *KeyMaterialError.
func ResolveWorkspace(cfg config.WorkspaceConfig) (WorkspaceCredentials, error) {
	creds := WorkspaceCredentials{
		Workspace: cfg.ID,
		APIKey:    cfg.APIKey,
		BaseURL:   normalizeBaseURL(cfg.BaseURL),
	}

	pemBytes, err := keyMaterial(cfg)
	if err != nil {
		return creds, &KeyMaterialError{Workspace: cfg.ID, Reason: "decoding key bundle", Err: err}
	}
	if len(pemBytes) == 0 || cfg.APIKey == "" {
		return creds, nil
	}

	key, err := ParsePrivateKey(pemBytes)
	if err != nil {
		return creds, &KeyMaterialError{Workspace: cfg.ID, Reason: "parsing private key", Err: err}
	}

	creds.PrivateKey = key
	creds.Enabled = true
	return creds, nil
}

// Resolve builds the full workspace credential map. Workspaces with malformed
// material are logged and left disabled so the rest of the process can run.
func Resolve(cfgs []config.WorkspaceConfig) map[domain.Workspace]WorkspaceCredentials {
	out := make(map[domain.Workspace]WorkspaceCredentials, len(cfgs))
	for _, cfg := range cfgs {
		creds, err := ResolveWorkspace(cfg)
		if err != nil {
			slog.Warn("workspace disabled", "workspace", cfg.ID, "error", err)
		} else if !creds.Enabled {
			slog.Info("workspace not configured, disabled", "workspace", cfg.ID)
		}
		out[creds.Workspace] = creds
	}
	return out
}

// keyMaterial selects the PEM bytes for a workspace: the base64-encoded
// bundle wins, then the PEM variable with escaped newlines normalized.
func keyMaterial(cfg config.WorkspaceConfig) ([]byte, error) {
	if cfg.PrivateKeyB64 != "" {
		raw, err := base64.StdEncoding.DecodeString(cfg.PrivateKeyB64)
		if err != nil {
			return nil, err
		}
		return raw, nil
	}
	if cfg.PrivateKeyPEM != "" {
		return []byte(normalizePEM(cfg.PrivateKeyPEM)), nil
	}
	return nil, nil
}

// normalizeBaseURL strips trailing slashes so request paths can be appended
// uniformly.
func normalizeBaseURL(u string) string {
	return strings.TrimRight(u, "/")
}

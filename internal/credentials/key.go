package credentials

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// keyFormat tags the PEM encoding of a custody signing key. The format is
// detected once per credential load; signing always uses the parsed
// *rsa.PrivateKey afterwards.
type keyFormat int

const (
	keyFormatUnknown keyFormat = iota
	keyFormatPKCS1             // "RSA PRIVATE KEY"
	keyFormatPKCS8             // "PRIVATE KEY"
)

func detectKeyFormat(blockType string) keyFormat {
	switch blockType {
	case "RSA PRIVATE KEY":
		return keyFormatPKCS1
	case "PRIVATE KEY":
		return keyFormatPKCS8
	default:
		return keyFormatUnknown
	}
}

// ParsePrivateKey decodes a PEM-encoded RSA private key in either PKCS#1 or
// PKCS#8 form into the canonical *rsa.PrivateKey used by the signer.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	switch detectKeyFormat(block.Type) {
	case keyFormatPKCS1:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#1 key: %w", err)
		}
		return key, nil

	case keyFormatPKCS8:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#8 key: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS#8 key is %T, not RSA", parsed)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// normalizePEM converts escaped newline sequences, as they appear in
// single-line environment variables, back into literal newlines.
func normalizePEM(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

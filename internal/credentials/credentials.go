// Package credentials builds the ordered authentication method list used to
// open a remote session.
//
// A creation request may carry a password, a certificate path, or both. The
// negotiated list preserves that order: password first, then key. Certificate
// paths are always resolved under a fixed root directory; paths escaping the
// root or pointing at missing files are rejected before any connection
// attempt is made.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind identifies an authentication method variant.
type Kind int

const (
	// KindPassword authenticates with a plain password.
	KindPassword Kind = iota
	// KindPrivateKey authenticates with a private key file, optionally
	// protected by a passphrase.
	KindPrivateKey
)

// Method is one negotiated authentication method. Only the fields relevant
// to its Kind are set.
type Method struct {
	Kind       Kind
	Password   string
	KeyPath    string // absolute path, resolved under the certificate root
	Passphrase string
}

// Request is the credential portion of a session creation request.
type Request struct {
	Password              string
	CertificatePath       string
	CertificatePassphrase string
}

// Negotiate validates req and returns the ordered, non-empty method list.
func Negotiate(req Request, certRoot string) ([]Method, error) {
	if req.Password == "" && req.CertificatePath == "" {
		return nil, fmt.Errorf("missing credentials: supply a password, a certificate path, or both")
	}

	var methods []Method
	if req.Password != "" {
		methods = append(methods, Method{Kind: KindPassword, Password: req.Password})
	}
	if req.CertificatePath != "" {
		resolved, err := ResolveCertificate(certRoot, req.CertificatePath)
		if err != nil {
			return nil, err
		}
		methods = append(methods, Method{
			Kind:       KindPrivateKey,
			KeyPath:    resolved,
			Passphrase: req.CertificatePassphrase,
		})
	}
	return methods, nil
}

// ResolveCertificate resolves path relative to root and verifies the result
// stays inside root and names an existing regular file.
func ResolveCertificate(root, path string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("certificate not found: resolve root: %v", err)
	}

	resolved := filepath.Join(rootAbs, path)
	rel, err := filepath.Rel(rootAbs, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("certificate not found: %q resolves outside the certificate directory", path)
	}

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("certificate not found: %s", path)
	}
	return resolved, nil
}

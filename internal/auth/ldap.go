// Package auth verifies operator credentials against the plant's Active
// Directory over LDAP. Bind failures of any kind are reported to callers as
// a single generic error; the upstream detail is logged with the offending
// identity and never exposed to clients.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is the only error clients ever see from a failed
// authentication attempt.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator verifies a username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// LDAPConfig locates the directory service.
type LDAPConfig struct {
	// URL is the directory address, e.g. ldap://ad.example.com:389.
	URL string
	// Domain is the NT domain prefixed to usernames for the NTLM bind.
	Domain string
	// Timeout bounds the dial; zero means 10 seconds.
	Timeout time.Duration
}

const defaultDialTimeout = 10 * time.Second

// LDAPAuthenticator binds DOMAIN\username with NTLM, matching how the floor
// tools have always authenticated.
type LDAPAuthenticator struct {
	cfg    LDAPConfig
	logger *zap.Logger
}

// NewLDAP builds an LDAPAuthenticator.
func NewLDAP(cfg LDAPConfig, logger *zap.Logger) (*LDAPAuthenticator, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("ldap: url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDialTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LDAPAuthenticator{cfg: cfg, logger: logger}, nil
}

// Authenticate attempts an NTLM bind as the given user. Empty credentials
// are rejected locally; an empty LDAP password would be an unauthenticated
// bind and must never be forwarded.
func (a *LDAPAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	timeout := a.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	conn, err := ldap.DialURL(a.cfg.URL, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		a.logger.Error("directory service unreachable",
			zap.String("username", username), zap.Error(err))
		return ErrInvalidCredentials
	}
	defer conn.Close() //nolint:errcheck // connection teardown

	if err := conn.NTLMBind(a.cfg.Domain, username, password); err != nil {
		a.logger.Warn("directory bind rejected",
			zap.String("username", username),
			zap.String("domain", a.cfg.Domain),
			zap.Error(err))
		return ErrInvalidCredentials
	}
	a.logger.Info("directory bind succeeded", zap.String("username", username))
	return nil
}

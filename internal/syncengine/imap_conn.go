package syncengine

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap/client"

	"github.com/mailbridge/syncstack/internal/enum"
	"github.com/mailbridge/syncstack/internal/models"
)

// authError wraps a LOGIN or XOAUTH2 AUTHENTICATE failure so callers can
// tell "the server rejected these credentials" apart from a transient
// network or protocol error worth retrying.
type authError struct {
	err error
}

func (e *authError) Error() string { return e.err.Error() }
func (e *authError) Unwrap() error { return e.err }

// isAuthError reports whether err (or anything it wraps) is an authError.
func isAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// dialAccount opens and authenticates an IMAP connection for account,
// honoring ImapSecurity: TLS for the common "connect-then-login" case,
// STARTTLS when the account asks for it, and a bare connection only when
// security is explicitly none (self-hosted test servers).
func dialAccount(account *models.Account, timeout time.Duration) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", account.ImapHost, account.ImapPort)

	var c *client.Client
	var err error

	switch account.ImapSecurity {
	case enum.EmailSecuritySSL, enum.EmailSecurityTLS:
		c, err = client.DialTLS(addr, &tls.Config{ServerName: account.ImapHost})
	case enum.EmailSecurityStartTLS:
		c, err = client.Dial(addr)
		if err == nil {
			err = c.StartTLS(&tls.Config{ServerName: account.ImapHost})
		}
	case enum.EmailSecurityNone:
		c, err = client.Dial(addr)
	default:
		c, err = client.DialTLS(addr, &tls.Config{ServerName: account.ImapHost})
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c.Timeout = timeout

	if account.GrantID != "" && account.OAuthAccessToken != "" {
		if err := c.Authenticate(newXoauth2Client(account.ImapUsername, account.OAuthAccessToken)); err != nil {
			c.Logout()
			return nil, &authError{fmt.Errorf("xoauth2 authenticate: %w", err)}
		}
		return c, nil
	}

	if err := c.Login(account.ImapUsername, account.ImapPassword); err != nil {
		c.Logout()
		return nil, &authError{fmt.Errorf("login: %w", err)}
	}

	return c, nil
}

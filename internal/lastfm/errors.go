package lastfm

import (
	"errors"
	"fmt"

	lfm "github.com/shkh/lastfm-go/lastfm"
)

var (
	// ErrNotAuthenticated is returned when an operation requires a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrReconnectRequired means the stored credential is dead and the
	// user must re-link the account. Never retried automatically.
	ErrReconnectRequired = errors.New("reconnect required")
	// ErrRateLimited means the service asked us to back off. Temporary;
	// self-heals.
	ErrRateLimited = errors.New("rate limited")
)

// Remote error codes the service documents. Anything else stays a plain
// RemoteError so the numeric code reaches the caller.
const (
	codeAuthFailed     = 4
	codeInvalidSession = 9
	codeKeySuspended   = 26
	codeRateLimited    = 29
)

// RemoteError preserves the service's numeric error code, distinguishable
// from transport-level failures so the caller can offer a specific remedy.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("lastfm error %d: %s", e.Code, e.Message)
}

// Unwrap maps documented codes onto the sentinel taxonomy.
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case codeAuthFailed, codeInvalidSession, codeKeySuspended:
		return ErrReconnectRequired
	case codeRateLimited:
		return ErrRateLimited
	}
	return nil
}

// wrapRemote converts library errors into RemoteError where a service code
// is present, leaving transport errors untouched.
func wrapRemote(op string, err error) error {
	if err == nil {
		return nil
	}
	var lfmErr *lfm.LastfmError
	if errors.As(err, &lfmErr) && lfmErr.Code > 0 {
		return fmt.Errorf("%s: %w", op, &RemoteError{Code: lfmErr.Code, Message: lfmErr.Message})
	}
	return fmt.Errorf("%s: %w", op, err)
}

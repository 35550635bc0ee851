package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ohmage/internal/domain"
)

const (
	// AuthenticationTokenKey names both the cookie and the parameter that
	// may carry a first-party token.
	AuthenticationTokenKey = "auth_token"

	headerAuthorization = "Authorization"
	bearerScheme        = "Bearer"
)

var (
	errConflictingTokenCookies = fmt.Errorf("%w: multiple, different authentication token cookies were given", domain.ErrCredentialConflict)
	errConflictingTokenParams  = fmt.Errorf("%w: multiple, different authentication token parameters were given", domain.ErrCredentialConflict)
	errConflictingBearerTokens = fmt.Errorf("%w: multiple, different third-party credentials were provided as 'Bearer' Authorization headers", domain.ErrCredentialConflict)
	errTokenUnknown            = fmt.Errorf("%w: the authentication token is unknown", domain.ErrCredentialUnknown)
	errTokenNoLongerValid      = fmt.Errorf("%w: this token is no longer valid", domain.ErrCredentialUnknown)
	errBearerTokenUnknown      = fmt.Errorf("%w: the authorization token is unknown or expired", domain.ErrCredentialUnknown)
)

// Credentials are the raw carriers a request may supply tokens in, exactly
// as the transport received them. Parameters must include both query and
// form values; an absent key means zero occurrences.
type Credentials struct {
	Cookies    []*http.Cookie
	Parameters url.Values
	Headers    http.Header
}

// RequestAdmission resolves the credentials of one request into a
// RequestContext before any handler runs. A token may be supplied any
// number of times across cookies and parameters as long as every occurrence
// is textually identical; the first occurrence observed (cookies before
// parameters) is canonical. A request carrying no credentials at all
// resolves to an anonymous context, not an error.
//
// Resolve never mutates token state and holds no state of its own, so a
// single value is safe for concurrent use across requests.
type RequestAdmission struct {
	AuthenticationTokens AuthenticationTokenStore
	AuthorizationTokens  AuthorizationTokenStore
	Now                  Clock
}

func (a *RequestAdmission) Resolve(ctx context.Context, creds Credentials) (domain.RequestContext, error) {
	var rc domain.RequestContext

	accessToken, found, fromParameter, err := collectAuthenticationToken(creds)
	rc.TokenIsFromParameter = fromParameter
	if err != nil {
		return rc, err
	}
	if found {
		token, err := a.lookupAuthenticationToken(ctx, accessToken)
		if err != nil {
			return rc, err
		}
		rc.AuthenticationToken = token
	}

	bearerToken, found, err := collectBearerToken(creds.Headers)
	if err != nil {
		return rc, err
	}
	if found {
		token, err := a.lookupAuthorizationToken(ctx, bearerToken)
		if err != nil {
			return rc, err
		}
		rc.AuthorizationToken = token
	}

	return rc, nil
}

// collectAuthenticationToken scans cookies first, then parameter values,
// and reports the canonical token. fromParameter is true whenever at least
// one parameter occurrence existed, regardless of how resolution ends. An
// empty string is a real candidate, not an absent one.
func collectAuthenticationToken(creds Credentials) (token string, found bool, fromParameter bool, err error) {
	for _, cookie := range creds.Cookies {
		if cookie.Name != AuthenticationTokenKey {
			continue
		}
		if !found {
			token = cookie.Value
			found = true
		} else if token != cookie.Value {
			return "", false, false, errConflictingTokenCookies
		}
	}

	values := creds.Parameters[AuthenticationTokenKey]
	fromParameter = len(values) > 0
	for _, value := range values {
		if !found {
			token = value
			found = true
		} else if token != value {
			return "", false, fromParameter, errConflictingTokenParams
		}
	}
	return token, found, fromParameter, nil
}

// collectBearerToken scans every Authorization header value. A value must
// split on a single space into exactly two parts with the literal scheme
// "Bearer" to contribute; anything else is silently ignored.
func collectBearerToken(headers http.Header) (token string, found bool, err error) {
	for _, value := range headers.Values(headerAuthorization) {
		parts := strings.Split(value, " ")
		if len(parts) != 2 {
			continue
		}
		if parts[0] != bearerScheme {
			continue
		}
		if !found {
			token = parts[1]
			found = true
		} else if token != parts[1] {
			return "", false, errConflictingBearerTokens
		}
	}
	return token, found, nil
}

func (a *RequestAdmission) lookupAuthenticationToken(ctx context.Context, accessToken string) (*domain.AuthenticationToken, error) {
	if a.AuthenticationTokens == nil {
		return nil, errors.New("authentication token store required")
	}
	token, err := a.AuthenticationTokens.GetByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errTokenUnknown
		}
		return nil, err
	}
	if !token.ValidAt(a.now()) {
		return nil, errTokenNoLongerValid
	}
	return token, nil
}

func (a *RequestAdmission) lookupAuthorizationToken(ctx context.Context, accessToken string) (*domain.AuthorizationToken, error) {
	if a.AuthorizationTokens == nil {
		return nil, errors.New("authorization token store required")
	}
	token, err := a.AuthorizationTokens.GetByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errBearerTokenUnknown
		}
		return nil, err
	}
	if !token.ValidAt(a.now()) {
		return nil, errBearerTokenUnknown
	}
	return token, nil
}

func (a *RequestAdmission) now() time.Time {
	if a != nil && a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

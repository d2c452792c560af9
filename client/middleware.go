package client

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dashkit/authcore/auth"
	"github.com/dashkit/authcore/pkg/apierr"
)

// Doer executes a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Middleware wraps a Doer with additional behavior.
type Middleware func(next Doer) Doer

// Chain applies middlewares to base. The first middleware listed becomes the
// outermost wrapper.
func Chain(base Doer, middlewares ...Middleware) Doer {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

// BearerAuth attaches the current access token as a bearer credential.
// When no valid token exists the request is sent unauthenticated; the
// server's 401 then drives the refresh cycle.
func BearerAuth(tokens *auth.Coordinator) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			accessToken, err := tokens.AccessToken(req.Context())
			if err != nil {
				log.Warn().Err(err).Msg("Failed to load access token, sending request unauthenticated")
			}
			if accessToken != "" {
				req.Header.Set("Authorization", "Bearer "+accessToken)
			}
			return next.Do(req)
		})
	}
}

// AuthRetry intercepts 401 responses: it refreshes the token once and
// replays the request with the new credential. A 401 on the replayed
// request, or a failed refresh, is terminal and reported through
// onAuthFailure. The attempt counter is local to this call, never stored
// on the request, so concurrent requests cannot alias each other's state.
func AuthRetry(tokens *auth.Coordinator, onAuthFailure func()) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			current := req
			for attempt := 0; ; attempt++ {
				resp, err := next.Do(current)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode != http.StatusUnauthorized {
					return resp, nil
				}

				drain(resp)
				if attempt > 0 {
					// Fresh token was rejected too; do not loop.
					signal(onAuthFailure)
					return nil, apierr.FromStatus(http.StatusUnauthorized, "")
				}

				accessToken, rerr := tokens.Refresh(req.Context())
				if rerr != nil {
					signal(onAuthFailure)
					return nil, rerr
				}

				retry, cerr := rewind(req)
				if cerr != nil {
					return nil, cerr
				}
				retry.Header.Set("Authorization", "Bearer "+accessToken)
				current = retry
			}
		})
	}
}

func signal(onAuthFailure func()) {
	if onAuthFailure != nil {
		onAuthFailure()
	}
}

// rewind rebuilds a request so its body can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, apierr.New(apierr.Network, "failed to rewind request body for retry", err)
		}
		retry.Body = body
	}
	return retry, nil
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

package partner

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenCache holds an OAuth client-credentials token for the lifetime of an
// integration. A token is fetched on first use, again once it expires, and
// again after the API rejects it.
type tokenCache struct {
	cfg        clientcredentials.Config
	httpClient *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

func (t *tokenCache) token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tok.Valid() {
		return t.tok.AccessToken, nil
	}
	if t.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)
	}
	tok, err := t.cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire token: %w", err)
	}
	t.tok = tok
	return tok.AccessToken, nil
}

func (t *tokenCache) invalidate() {
	t.mu.Lock()
	t.tok = nil
	t.mu.Unlock()
}

// withToken runs call with a cached token and, when the API answers 401,
// once more with a fresh one.
func (t *tokenCache) withToken(ctx context.Context, call func(token string) error) error {
	for attempt := 0; ; attempt++ {
		tok, err := t.token(ctx)
		if err != nil {
			return err
		}
		err = call(tok)
		if err == nil || attempt > 0 || !isUnauthorized(err) {
			return err
		}
		t.invalidate()
	}
}

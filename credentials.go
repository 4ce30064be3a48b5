package pdfrelay

import (
	"net/http"
	"sync"
)

// Header names for credential injection and refresh.
const (
	// HeaderCSRFToken carries the CSRF token on outgoing state-changing
	// requests; the server echoes a refreshed value under the same name.
	HeaderCSRFToken = "X-CSRF-Token"
	// HeaderAPIKey carries the API key supplied by the external session.
	HeaderAPIKey = "X-API-Key"
)

// APIKeyFunc resolves the API key from the external user/session object.
// The key is not owned by this package; it is looked up read-only on every
// outgoing request. A nil or empty result omits the header.
type APIKeyFunc func() string

// CredentialProvider resolves the headers to attach to outgoing requests
// and absorbs refreshed CSRF tokens from responses. Observe is the only
// write path to credential state.
type CredentialProvider struct {
	mu        sync.RWMutex
	csrfToken string
	apiKey    APIKeyFunc
}

// NewCredentialProvider creates a provider seeded with an optional initial
// token (the embedded page hint equivalent).
func NewCredentialProvider(initialToken string, apiKey APIKeyFunc) *CredentialProvider {
	return &CredentialProvider{
		csrfToken: initialToken,
		apiKey:    apiKey,
	}
}

// HeadersFor merges default headers, the auto-injected credentials and the
// caller's custom headers. Precedence: custom > CSRF > API key > defaults,
// so custom headers may override any auto-injected value.
func (p *CredentialProvider) HeadersFor(defaults, custom map[string]string) http.Header {
	h := http.Header{}
	for k, v := range defaults {
		h.Set(k, v)
	}
	if p.apiKey != nil {
		if key := p.apiKey(); key != "" {
			h.Set(HeaderAPIKey, key)
		}
	}
	p.mu.RLock()
	token := p.csrfToken
	p.mu.RUnlock()
	if token != "" {
		h.Set(HeaderCSRFToken, token)
	}
	for k, v := range custom {
		h.Set(k, v)
	}
	return h
}

// Observe absorbs a refreshed CSRF token from response headers. It must run
// after every completed attempt that actually received a response; transport
// failures with no response carry nothing to observe.
func (p *CredentialProvider) Observe(responseHeaders http.Header) {
	if responseHeaders == nil {
		return
	}
	token := responseHeaders.Get(HeaderCSRFToken)
	if token == "" {
		return
	}
	p.mu.Lock()
	p.csrfToken = token
	p.mu.Unlock()
}

// Token returns the currently held CSRF token, if any.
func (p *CredentialProvider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.csrfToken
}

package search

import "net/http"

// keyClient returns a copy of base that adds the API key as the "key" query parameter.
// option.WithHTTPClient overrides option.WithAPIKey, so the key must ride on the client.
func keyClient(base *http.Client, apiKey string) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c := *base
	c.Transport = &keyTransport{key: apiKey, base: rt}
	return &c
}

type keyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(r)
}

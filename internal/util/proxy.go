package util

import (
	"net/http"
	"net/url"
	"time"
)

// ProxyFunc returns a proxy selector for explicit proxy URLs.
// With neither set it defers to HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
func ProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// NewHTTPClient builds the outbound client shared by fetchers
func NewHTTPClient(timeout time.Duration, httpProxy, httpsProxy string) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = ProxyFunc(httpProxy, httpsProxy)
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

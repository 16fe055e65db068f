package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/models"
	"golang.org/x/net/proxy"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// NewShapedClient creates an HTTP client whose transport matches the
// configured upstream topology: an optional SOCKS5 proxy for outbound
// traffic and an optional cooperating inspection proxy. TLS verification
// is disabled only when an inspection proxy terminates TLS.
func NewShapedClient(config *common.Config, dna *models.DNA) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &http.Transport{
		ForceAttemptHTTP2:   dna.Network.HTTPVersion == "2",
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	if config.Inspection.Host != "" {
		inspectionURL, err := url.Parse(fmt.Sprintf("http://%s:%d", config.Inspection.Host, config.Inspection.Port))
		if err != nil {
			return nil, fmt.Errorf("invalid inspection proxy address: %w", err)
		}
		transport.Proxy = http.ProxyURL(inspectionURL)
		// The inspection proxy terminates TLS with its own certificate.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if config.Proxy.Enabled {
		if config.Proxy.Type != "" && config.Proxy.Type != "socks5" {
			return nil, fmt.Errorf("unsupported proxy type %q", config.Proxy.Type)
		}
		addr := net.JoinHostPort(config.Proxy.Host, fmt.Sprintf("%d", config.Proxy.Port))
		dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", addr, err)
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
	}

	return &http.Client{
		Jar:       jar,
		Timeout:   config.RequestTimeout(),
		Transport: transport,
	}, nil
}

// ShapeRequest applies the DNA's network identity to an outbound request:
// the full header set in the DNA's declared order, then the identity
// headers. Go's transport canonicalizes header ordering on the wire, so
// the declared order is also retained for request logging.
func ShapeRequest(req *http.Request, dna *models.DNA) {
	seen := make(map[string]bool, len(dna.Network.Headers))
	for _, name := range dna.Network.HeaderOrder {
		if value, ok := dna.Network.Headers[name]; ok {
			req.Header.Set(name, value)
			seen[name] = true
		}
	}
	for name, value := range dna.Network.Headers {
		if !seen[name] {
			req.Header.Set(name, value)
		}
	}

	if dna.Identity.UserAgent != "" {
		req.Header.Set("User-Agent", dna.Identity.UserAgent)
	}
	if dna.Identity.Language != "" {
		req.Header.Set("Accept-Language", dna.Identity.Language)
	}
	if dna.Network.AcceptEncoding != "" {
		req.Header.Set("Accept-Encoding", dna.Network.AcceptEncoding)
	}
}

// OrderedHeaderList renders the request headers in the DNA's declared
// order for persistence in the request log.
func OrderedHeaderList(req *http.Request, dna *models.DNA) []string {
	ordered := make([]string, 0, len(req.Header))
	listed := make(map[string]bool)
	for _, name := range dna.Network.HeaderOrder {
		if req.Header.Get(name) != "" {
			ordered = append(ordered, fmt.Sprintf("%s: %s", name, req.Header.Get(name)))
			listed[http.CanonicalHeaderKey(name)] = true
		}
	}
	for name, values := range req.Header {
		if listed[name] {
			continue
		}
		for _, value := range values {
			ordered = append(ordered, fmt.Sprintf("%s: %s", name, value))
		}
	}
	return ordered
}

package protocol

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// defaultMaxBodySize limits descriptor documents. Management cards answer
// with a few kilobytes; anything larger is not a device we support.
const defaultMaxBodySize = 1 << 20

// httpFetcher performs the GET requests shared by the HTTP based scanners.
type httpFetcher struct {
	// client is the HTTP client used for every request.
	client *http.Client

	// userAgent is the User-Agent header to use for requests.
	userAgent string

	// maxBodySize limits the response body size to prevent memory exhaustion.
	maxBodySize int64

	// timeout is the per-request timeout.
	timeout time.Duration
}

// HTTPScannerOption configures the HTTP based scanners.
type HTTPScannerOption func(*httpFetcher)

// WithHTTPClient replaces the HTTP client.
// The default client does not verify certificates because management cards
// ship with self-signed ones.
func WithHTTPClient(client *http.Client) HTTPScannerOption {
	return func(f *httpFetcher) {
		f.client = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) HTTPScannerOption {
	return func(f *httpFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) HTTPScannerOption {
	return func(f *httpFetcher) {
		f.maxBodySize = size
	}
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPScannerOption {
	return func(f *httpFetcher) {
		f.timeout = timeout
	}
}

func newHTTPFetcher(opts ...HTTPScannerOption) *httpFetcher {
	f := &httpFetcher{
		client:      newInsecureClient(),
		userAgent:   "powerdisco",
		maxBodySize: defaultMaxBodySize,
		timeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newInsecureClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // Devices use self-signed certificates
	}
	return &http.Client{
		Transport: transport,
		// Management cards redirect http to https on some firmware; the
		// probe wants the first answer.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// baseURL builds scheme://address:port with IPv6 literals bracketed.
func baseURL(scheme, address string, port uint16) string {
	return scheme + "://" + net.JoinHostPort(address, strconv.Itoa(int(port)))
}

// get fetches rawURL and returns the body. Non-2xx answers are errors.
func (f *httpFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Connection", "close")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

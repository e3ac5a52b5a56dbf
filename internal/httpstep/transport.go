package httpstep

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// transport is the single capability every HTTP step variant implements:
// send a built request and get back a raw response (spec §9, "Heterogeneous
// HTTP transports... modeled as variants of a single capability
// {send(request) -> response}").
type transport interface {
	do(ctx context.Context, req preparedRequest) (*http.Response, error)
}

// preparedRequest carries everything needed to build the wire request —
// kept separate from *http.Request because the curl transport shells out
// instead of using net/http.
type preparedRequest struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
	timeout time.Duration
}

// standardTransport is the default net/http client: pooled connections, TLS
// verified against the resolved CA config, bounded redirects — grounded on
// the teacher's internal/scheduler/executor.go client construction.
type standardTransport struct {
	client *http.Client
}

func newStandardTransport(tlsConfig *tls.Config) *standardTransport {
	return &standardTransport{client: &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}}
}

func (t *standardTransport) do(ctx context.Context, pr preparedRequest) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, pr.timeout)
	defer cancel()

	var body *bytes.Reader
	if len(pr.body) > 0 {
		body = bytes.NewReader(pr.body)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, pr.method, pr.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range pr.headers {
		req.Header.Set(k, v)
	}
	return t.client.Do(req)
}

// tolerantTransport is the "challenge-tolerant" variant (spec §4.5 step 2):
// a distinct client carrying a cookie jar across retries, so a site that
// sets a challenge cookie on the first attempt can be satisfied on a
// subsequent one. This is the grounded stand-in for the original's
// cloudscraper dependency — see SPEC_FULL.md DOMAIN STACK section.
type tolerantTransport struct {
	client *http.Client
}

func newTolerantTransport(tlsConfig *tls.Config) (*tolerantTransport, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("build cookie jar: %w", err)
	}
	return &tolerantTransport{client: &http.Client{
		Jar: jar,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}}, nil
}

func (t *tolerantTransport) do(ctx context.Context, pr preparedRequest) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, pr.timeout)
	defer cancel()

	var body *bytes.Reader
	if len(pr.body) > 0 {
		body = bytes.NewReader(pr.body)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, pr.method, pr.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; fleetcron-agent)")
	for k, v := range pr.headers {
		req.Header.Set(k, v)
	}
	return t.client.Do(req)
}

// curlTransport shells out to the system curl binary for GET requests with
// use_curl set (spec §4.5 step 2) — grounded on
// jholhewres-goclaw/pkg/devclaw/sandbox/exec_direct.go's os/exec shape.
type curlTransport struct {
	path   string
	caPath string
}

var curlSearchPaths = []string{"/usr/bin/curl", "/opt/homebrew/bin/curl", "/usr/local/bin/curl"}

func newCurlTransport(caPath string) (*curlTransport, error) {
	if path, err := exec.LookPath("curl"); err == nil {
		return &curlTransport{path: path, caPath: caPath}, nil
	}
	for _, p := range curlSearchPaths {
		if _, err := os.Stat(p); err == nil {
			return &curlTransport{path: p, caPath: caPath}, nil
		}
	}
	return nil, fmt.Errorf("curl not found on system")
}

// do runs curl and turns its captured stdout into a minimal *http.Response —
// callers only need StatusCode and Body.
func (t *curlTransport) do(ctx context.Context, pr preparedRequest) (*http.Response, error) {
	args := []string{"-sS", "-i", "--max-time", fmt.Sprintf("%.0f", pr.timeout.Seconds())}
	if t.caPath != "" {
		args = append(args, "--cacert", t.caPath)
	}
	for k, v := range pr.headers {
		args = append(args, "-H", fmt.Sprintf("%s: %s", k, v))
	}
	args = append(args, pr.url)

	cmd := exec.CommandContext(ctx, t.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("curl: %w: %s", err, stderr.String())
	}

	return parseCurlOutput(stdout.Bytes())
}

// parseCurlOutput splits curl -i's combined header+body stdout into a
// minimal *http.Response.
func parseCurlOutput(raw []byte) (*http.Response, error) {
	text := string(raw)
	parts := strings.SplitN(text, "\r\n\r\n", 2)
	if len(parts) < 2 {
		parts = strings.SplitN(text, "\n\n", 2)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("unexpected curl output")
	}
	headerBlock, body := parts[0], parts[1]

	lines := strings.Split(headerBlock, "\n")
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty curl header block")
	}
	statusLine := strings.TrimSpace(lines[countLeadingStatusLines(lines)-1])
	fields := strings.Fields(statusLine)
	status := 0
	if len(fields) >= 2 {
		fmt.Sscanf(fields[1], "%d", &status)
	}

	return &http.Response{
		StatusCode: status,
		Body:       newStringReadCloser(body),
	}, nil
}

// countLeadingStatusLines returns how many consecutive "HTTP/x.x NNN" lines
// open the header block (at least 1); parseCurlOutput takes the last of them
// as the status line. curl runs without -L, so redirects are not followed,
// and only the header block before the first blank line is examined.
func countLeadingStatusLines(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "HTTP/") {
			n++
		} else if n > 0 {
			break
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

package mcpserver

import (
	"context"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dagaz/internal/models"
)

const maxCaptureSize = 2 << 20 // 2 MB of HTML is plenty for a title

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func (s *Server) captureLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	date := models.Today()
	if v := req.GetString("date", ""); v != "" {
		date, err = models.ParseDate(v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", v)), nil
		}
	}

	// An explicit note label skips the fetch entirely.
	label := req.GetString("note", "")
	if label == "" {
		label, err = fetchTitle(rawURL)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	content := rawURL
	if label != "" {
		content = label + " - " + rawURL
	}

	detail, err := s.svc.AppendBullet(ctx, date, models.Bullet{Type: models.Note, Content: content})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	captured := lastOfType(detail.Bullets, models.Note)
	return mcp.NewToolResultText(fmt.Sprintf("captured to %s as %s: %s", date, captured.ID, content)), nil
}

// fetchTitle downloads a page and extracts its title. An empty title
// with nil error means the page had none (or was not HTML); the bare
// URL is then the capture.
func fetchTitle(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	resp, err := client.Get(rawURL) //nolint:noctx
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch failed: HTTP %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "html") {
		return "", nil
	}

	limited := io.LimitReader(resp.Body, maxCaptureSize)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read body failed: %w", err)
	}
	return pageTitle(data), nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// pageTitle extracts and normalizes the <title> of an HTML document.
func pageTitle(data []byte) string {
	m := titleRe.FindSubmatch(data)
	if m == nil {
		return ""
	}
	title := html.UnescapeString(string(m[1]))
	title = strings.Join(strings.Fields(title), " ")
	if r := []rune(title); len(r) > 120 {
		title = string(r[:120])
	}
	return title
}

// Package external verifies that remote links still resolve. It is opt-in:
// lint stays offline unless the checker is appended to the rule set.
package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"prepkit/internal/catalog"
	"prepkit/internal/lint"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 8
	defaultMaxBody     = 2 << 20
	defaultUserAgent   = "prepkit/0.4.0"
)

// Options tunes the checker. Zero values fall back to sane defaults.
type Options struct {
	Timeout      time.Duration
	Concurrency  int
	ExcludeHosts []string
	MaxBody      int64
	UserAgent    string
}

// Checker fetches every distinct remote URL in the corpus once and reports
// dead links and missing page anchors. It implements lint.Rule; anchor
// problems carry their own rule name so they can be tuned separately.
type Checker struct {
	client  *http.Client
	opts    Options
	exclude []string
	log     *zap.Logger
}

func NewChecker(opts Options, log *zap.Logger) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = defaultMaxBody
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		exclude: opts.ExcludeHosts,
		log:     log.Named("extlink"),
	}
}

func (c *Checker) ID() string { return "link-external" }

// ref is one occurrence of a remote URL in the corpus.
type ref struct {
	path     string
	line     int
	fragment string
}

func (c *Checker) Check(ctx context.Context, corpus *catalog.Corpus) []lint.Finding {
	var findings []lint.Finding
	targets := make(map[string][]ref)

	for _, n := range corpus.Notes {
		for _, l := range n.Links {
			if !l.Remote() {
				continue
			}
			u, err := url.Parse(strings.TrimSpace(l.Raw))
			if err != nil {
				findings = append(findings, lint.Finding{
					Rule: c.ID(), Severity: lint.SeverityWarning, Path: n.Path, Line: l.Line,
					Message: fmt.Sprintf("%q is not a valid URL", l.Raw),
				})
				continue
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				continue
			}
			if c.excluded(u.Hostname()) {
				continue
			}
			frag := u.Fragment
			u.Fragment = ""
			key := u.String()
			targets[key] = append(targets[key], ref{path: n.Path, line: l.Line, fragment: frag})
		}
	}
	if len(targets) == 0 {
		return findings
	}

	c.log.Debug("checking remote links", zap.Int("urls", len(targets)))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for target, refs := range targets {
		g.Go(func() error {
			out := c.checkURL(gctx, target, refs)
			mu.Lock()
			findings = append(findings, out...)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; dead links become findings instead.
	_ = g.Wait()

	return findings
}

func (c *Checker) excluded(host string) bool {
	for _, ex := range c.exclude {
		if host == ex || strings.HasSuffix(host, "."+ex) {
			return true
		}
	}
	return false
}

// checkURL fetches one URL and produces findings for every place it is
// referenced. The body is only read when some reference needs an anchor.
func (c *Checker) checkURL(ctx context.Context, target string, refs []ref) []lint.Finding {
	needAnchors := false
	for _, r := range refs {
		if r.fragment != "" {
			needAnchors = true
			break
		}
	}

	status, ids, err := c.fetch(ctx, target, needAnchors)
	if err != nil {
		c.log.Debug("fetch failed", zap.String("url", target), zap.Error(err))
		findings := make([]lint.Finding, 0, len(refs))
		for _, r := range refs {
			findings = append(findings, lint.Finding{
				Rule: c.ID(), Severity: lint.SeverityWarning, Path: r.path, Line: r.line,
				Message: fmt.Sprintf("%s could not be reached", target),
				Detail:  err.Error(),
			})
		}
		return findings
	}

	if status >= 400 {
		findings := make([]lint.Finding, 0, len(refs))
		for _, r := range refs {
			findings = append(findings, lint.Finding{
				Rule: c.ID(), Severity: lint.SeverityWarning, Path: r.path, Line: r.line,
				Message: fmt.Sprintf("%s returned %d %s", target, status, http.StatusText(status)),
			})
		}
		return findings
	}

	var findings []lint.Finding
	for _, r := range refs {
		if r.fragment == "" || ids == nil {
			continue
		}
		// GitHub prefixes rendered heading anchors with user-content-.
		if ids[r.fragment] || ids["user-content-"+r.fragment] {
			continue
		}
		findings = append(findings, lint.Finding{
			Rule: "link-external-anchor", Severity: lint.SeverityWarning, Path: r.path, Line: r.line,
			Message: fmt.Sprintf("%s has no anchor %q", target, "#"+r.fragment),
		})
	}
	return findings
}

func (c *Checker) fetch(ctx context.Context, target string, wantBody bool) (int, map[string]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if !wantBody || resp.StatusCode >= 400 {
		return resp.StatusCode, nil, nil
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return resp.StatusCode, nil, nil
	}

	ids, err := collectAnchorIDs(io.LimitReader(resp.Body, c.opts.MaxBody))
	if err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, ids, nil
}

// collectAnchorIDs gathers every id attribute plus name attributes on <a>
// tags, the two ways a page can define a fragment target.
func collectAnchorIDs(r io.Reader) (map[string]bool, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "id" || (attr.Key == "name" && n.Data == "a") {
					ids[attr.Val] = true
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return ids, nil
}

var _ lint.Rule = (*Checker)(nil)

// RemoteLinkCount reports how many links the checker would test, for the
// opt-in confirmation in the CLI.
func RemoteLinkCount(corpus *catalog.Corpus) int {
	count := 0
	for _, n := range corpus.Notes {
		for _, l := range n.Links {
			if l.Remote() {
				count++
			}
		}
	}
	return count
}

package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/lectern-ai/lectern/internal/connectors"
)

const (
	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxInlineSize is the largest file the contents API returns inline
	// as base64. Bigger files go through the raw download endpoint.
	maxInlineSize = 1 << 20
)

// Fetcher downloads course documents from one repository directory.
type Fetcher struct {
	gh      *gh.Client
	limiter *RateLimiter
	loc     Locator
}

var _ connectors.Fetcher = (*Fetcher)(nil)

// New creates a fetcher for the given locator. An empty token makes
// unauthenticated requests, which is enough for public course repos.
func New(ctx context.Context, loc Locator, token string) *Fetcher {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = DefaultTimeout
	}
	return NewWithClient(gh.NewClient(httpClient), loc)
}

// NewWithClient creates a fetcher around an existing go-github client.
func NewWithClient(client *gh.Client, loc Locator) *Fetcher {
	return &Fetcher{
		gh:      client,
		limiter: NewRateLimiter(),
		loc:     loc,
	}
}

// Locator returns the repository directory this fetcher reads from.
func (f *Fetcher) Locator() Locator {
	return f.loc
}

// Fetch lists the directory and downloads every course document in it.
// Documents come back sorted by file name so ingestion order is stable.
func (f *Fetcher) Fetch(ctx context.Context) ([]connectors.Document, error) {
	entries, err := f.listDir(ctx)
	if err != nil {
		return nil, err
	}

	var docs []connectors.Document
	for _, entry := range entries {
		if entry.GetType() != "file" || !isCourseFile(entry.GetName()) {
			continue
		}

		text, err := f.fileContent(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", entry.GetPath(), err)
		}
		docs = append(docs, connectors.Document{Name: entry.GetName(), Text: text})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// listDir fetches the directory listing for the locator path.
func (f *Fetcher) listDir(ctx context.Context) ([]*gh.RepositoryContent, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	opts := &gh.RepositoryContentGetOptions{Ref: f.loc.Ref}
	file, dir, resp, err := f.gh.Repositories.GetContents(ctx, f.loc.Owner, f.loc.Repo, f.loc.Path, opts)
	if err != nil {
		return nil, f.wrapError(err, "list directory")
	}
	f.updateRateLimit(resp)

	if file != nil {
		return nil, fmt.Errorf("%s is a file, not a directory", f.loc)
	}
	return dir, nil
}

// fileContent downloads one file, picking the endpoint by size.
func (f *Fetcher) fileContent(ctx context.Context, entry *gh.RepositoryContent) (string, error) {
	if entry.GetSize() > maxInlineSize {
		return f.downloadContent(ctx, entry.GetPath())
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	opts := &gh.RepositoryContentGetOptions{Ref: f.loc.Ref}
	content, _, resp, err := f.gh.Repositories.GetContents(ctx, f.loc.Owner, f.loc.Repo, entry.GetPath(), opts)
	if err != nil {
		return "", f.wrapError(err, "get contents")
	}
	f.updateRateLimit(resp)

	if content == nil {
		return "", fmt.Errorf("%s is a directory, not a file", entry.GetPath())
	}

	decoded, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode content: %w", err)
	}
	return decoded, nil
}

// downloadContent streams a file too large for the contents API.
func (f *Fetcher) downloadContent(ctx context.Context, filePath string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	opts := &gh.RepositoryContentGetOptions{Ref: f.loc.Ref}
	rc, resp, err := f.gh.Repositories.DownloadContents(ctx, f.loc.Owner, f.loc.Repo, filePath, opts)
	if err != nil {
		return "", f.wrapError(err, "download contents")
	}
	defer rc.Close()
	f.updateRateLimit(resp)

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read download: %w", err)
	}
	return string(data), nil
}

// updateRateLimit refreshes the rate limiter from GitHub response headers.
func (f *Fetcher) updateRateLimit(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	f.limiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors into this package's error types.
func (f *Fetcher) wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		return &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
			URL:        ghErr.Response.Request.URL.String(),
		}
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   f.limiter.ResetTime(),
			Remaining: f.limiter.Remaining(),
			Limit:     f.limiter.Limit(),
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// isCourseFile mirrors the local folder ingestion filter: visible .txt
// and .md files only.
func isCourseFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(path.Ext(name))
	return ext == ".txt" || ext == ".md"
}

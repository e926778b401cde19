package ics

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "festgrid/internal/log"
)

// Format of a fetched schedule file.
type Format string

const (
	FormatICS  Format = "ics"
	FormatJSON Format = "json"
)

// Source is one remote schedule file.
type Source struct {
	ID  string
	URL string
}

// Result is a fetched body, live or from the disk cache.
type Result struct {
	Source    Source
	Body      []byte
	FromCache bool
}

// Format sniffs the payload: iCalendar when it opens with BEGIN:VCALENDAR,
// JSON otherwise.
func (r Result) Format() Format {
	if bytes.HasPrefix(bytes.TrimSpace(r.Body), []byte("BEGIN:VCALENDAR")) {
		return FormatICS
	}
	return FormatJSON
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads schedule files with conditional requests
// (ETag / Last-Modified) and keeps the last good body on disk, so a
// festival-ground network outage still serves the previous copy.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher caches under cacheDir; a nil client gets a 15s timeout.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/fetch-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// Fetch retrieves src. Network errors and non-2xx responses fall back to the
// cached body when there is one.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Result, error) {
	if src.URL == "" {
		return Result{}, errors.New("ics: source URL is empty")
	}

	dir := f.cacheDirFor(src.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Result{}, fmt.Errorf("ics: create cache dir: %w", err)
	}
	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body"))

	fromCache := func(reason error) (Result, error) {
		if len(cached) == 0 {
			return Result{}, reason
		}
		appLog.Error("fetch failed, using cached body", reason, "id", src.ID, "url", redactURL(src.URL))
		return Result{Source: src, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("ics: build request: %w", err)
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("fetch start", "id", src.ID, "url", redactURL(src.URL))
	resp, err := f.client.Do(req)
	if err != nil {
		return fromCache(fmt.Errorf("ics: fetch: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if len(cached) == 0 {
			return Result{}, errors.New("ics: 304 Not Modified without a cached body")
		}
		appLog.Info("fetch not modified; using cache", "id", src.ID)
		return Result{Source: src, Body: cached, FromCache: true}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fromCache(fmt.Errorf("ics: read body: %w", err))
		}
		err = saveCache(dir, cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}, body)
		if err != nil {
			appLog.Error("fetch cache save failed", err, "id", src.ID)
		}
		appLog.Info("fetch success", "id", src.ID, "status", resp.StatusCode, "bytes", len(body))
		return Result{Source: src, Body: body}, nil

	default:
		return fromCache(fmt.Errorf("ics: fetch: unexpected status %s", resp.Status))
	}
}

func (f *Fetcher) cacheDirFor(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

// saveCache writes the body before the metadata so meta never points at a
// missing body.
func saveCache(dir string, meta cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host; paths and queries often carry tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}

// Package warnfeed talks to the state WARN listing: it fetches the listing
// page, finds the published XLSX report, downloads it and turns its rows
// into observed records.
package warnfeed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/lgadye/warn-monitor/config"
	"github.com/lgadye/warn-monitor/types"
)

const userAgent = "warn-monitor/1.0 (+https://github.com/lgadye/warn-monitor)"

// Document is a downloaded WARN report.
type Document struct {
	URL  string
	Data []byte
}

// Client fetches the WARN report published on a listing page.
type Client struct {
	pageURL  string
	page     *http.Client
	download *http.Client
}

// NewClient creates a client for the listing at pageURL. Zero timeouts fall
// back to config.DefaultHTTPTimeout and config.DefaultDownloadTimeout.
func NewClient(pageURL string, pageTimeout, downloadTimeout time.Duration) *Client {
	if pageTimeout <= 0 {
		pageTimeout = config.DefaultHTTPTimeout
	}
	if downloadTimeout <= 0 {
		downloadTimeout = config.DefaultDownloadTimeout
	}
	return &Client{
		pageURL:  pageURL,
		page:     &http.Client{Timeout: pageTimeout},
		download: &http.Client{Timeout: downloadTimeout},
	}
}

// FetchDocument fetches the listing page, locates the XLSX link on it and
// downloads the report.
func (c *Client) FetchDocument(ctx context.Context) (Document, error) {
	log.Printf("Fetching WARN page %s", c.pageURL)
	html, err := FetchPage(ctx, c.page, c.pageURL)
	if err != nil {
		return Document{}, err
	}

	xlsxURL, err := ExtractXLSXURL(html, c.pageURL)
	if err != nil {
		return Document{}, err
	}
	log.Printf("Found XLSX URL: %s", xlsxURL)

	data, err := Download(ctx, c.download, xlsxURL)
	if err != nil {
		return Document{}, err
	}
	log.Printf("Downloaded %d bytes", len(data))
	return Document{URL: xlsxURL, Data: data}, nil
}

// Parse decodes a downloaded report into records.
func (c *Client) Parse(data []byte) ([]types.ObservedRecord, error) {
	return ParseXLSX(data)
}

// FetchPage retrieves the listing page HTML, decoded to UTF-8.
func FetchPage(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	resp, err := get(ctx, client, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch WARN page: %w", err)
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read WARN page: %w", err)
	}
	return string(body), nil
}

// Download retrieves the raw bytes at fileURL.
func Download(ctx context.Context, client *http.Client, fileURL string) ([]byte, error) {
	resp, err := get(ctx, client, fileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download XLSX: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read XLSX body: %w", err)
	}
	return data, nil
}

func get(ctx context.Context, client *http.Client, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP %d", target, resp.StatusCode)
	}
	return resp, nil
}

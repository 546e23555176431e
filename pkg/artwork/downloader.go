// ABOUTME: Artwork downloader for metadata image URLs
// ABOUTME: Fetches images over HTTP into the shared temp cache
package artwork

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Downloader fetches artwork referenced by URL in server metadata.
type Downloader struct {
	cacheDir    string
	currentPath string
	client      *http.Client
}

// NewDownloader creates an artwork downloader.
func NewDownloader() (*Downloader, error) {
	cacheDir := filepath.Join(os.TempDir(), "unison-artwork")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Downloader{
		cacheDir: cacheDir,
		client:   &http.Client{},
	}, nil
}

// Download fetches artwork from a URL, caching by URL hash. An empty URL
// returns an empty path without error.
func (d *Downloader) Download(url string) (string, error) {
	if url == "" {
		return "", nil
	}

	hash := sha256.Sum256([]byte(url))
	filename := fmt.Sprintf("%x%s", hash[:8], getExtension(url))
	cachePath := filepath.Join(d.cacheDir, filename)

	if _, err := os.Stat(cachePath); err == nil {
		log.Printf("Artwork cache hit: %s", cachePath)
		d.currentPath = cachePath
		return cachePath, nil
	}

	log.Printf("Downloading artwork: %s", url)
	resp, err := d.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artwork download failed: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(cachePath)
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(cachePath)
		return "", fmt.Errorf("failed to save artwork: %w", err)
	}

	log.Printf("Artwork saved: %s", cachePath)
	d.currentPath = cachePath
	return cachePath, nil
}

// CurrentPath returns the path of the most recently downloaded artwork.
func (d *Downloader) CurrentPath() string {
	return d.currentPath
}

// Cleanup removes the on-disk artwork cache.
func (d *Downloader) Cleanup() error {
	return os.RemoveAll(d.cacheDir)
}

// getExtension extracts the file extension from a URL, defaulting to .jpg.
func getExtension(url string) string {
	url = strings.Split(url, "?")[0]

	ext := filepath.Ext(url)
	if ext == "" {
		ext = ".jpg"
	}

	return ext
}

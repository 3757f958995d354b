package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxReferenceBytes = 10 << 20

// Fetcher downloads reference pictures.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch downloads url and sniffs the type when the server does not name an image type.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Image{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Image{}, fmt.Errorf("fetch reference: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes+1))
	if err != nil {
		return Image{}, err
	}
	if len(data) > maxReferenceBytes {
		return Image{}, fmt.Errorf("fetch reference: larger than %d bytes", maxReferenceBytes)
	}
	mime := resp.Header.Get("Content-Type")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("fetch reference: not an image (%s)", mime)
	}
	return Image{Data: data, MIMEType: mime}, nil
}

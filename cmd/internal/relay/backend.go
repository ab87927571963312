package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Backend performs a single HTTP exchange, either a multipart file upload or
// a JSON POST. There is no retry at this layer, a failed call fails the
// surrounding backup cycle.
type Backend interface {
	UploadFile(ctx context.Context, url string, field string, path string) ([]byte, error)
	PostJSON(ctx context.Context, url string, body any) ([]byte, error)
}

// HTTPBackend implements the backend on a timeout-bounded http client
type HTTPBackend struct {
	log    *zap.SugaredLogger
	client *http.Client
}

func NewBackend(log *zap.SugaredLogger, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		log: log,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// UploadFile posts the file at the given path as a single multipart form
// field and returns the raw response body. The file is streamed, artifacts
// can be larger than memory.
func (b *HTTPBackend) UploadFile(ctx context.Context, url string, field string, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening upload file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		// unblocks the form writer goroutine
		_ = pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	return b.do(req)
}

// PostJSON posts the given body as json and returns the raw response body
func (b *HTTPBackend) PostJSON(ctx context.Context, url string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return b.do(req)
}

func (b *HTTPBackend) do(req *http.Request) ([]byte, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b.log.Debugw("request was not successful", "url", req.URL.String(), "status", resp.Status)
		return nil, fmt.Errorf("request to %s returned %s", req.URL.Host, resp.Status)
	}

	return raw, nil
}

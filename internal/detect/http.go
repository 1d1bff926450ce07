package detect

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
	"strings"
	"time"

	"github.com/bdougie/catalog/internal/geometry"
)

// HTTPClient calls an external inference service that accepts an image as
// multipart form data and answers with JSON
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the inference service at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SegmentSubjects implements Detector
func (c *HTTPClient) SegmentSubjects(ctx context.Context, imageURI string) (SegmentResult, error) {
	var out SegmentResult
	err := c.post(ctx, "/segment", imageURI, &out)
	return out, err
}

// DetectObjects implements Detector
func (c *HTTPClient) DetectObjects(ctx context.Context, imageURI string) (geometry.DetectionResult, error) {
	var out geometry.DetectionResult
	err := c.post(ctx, "/detect", imageURI, &out)
	return out, err
}

// RecognizeText implements TextRecognizer
func (c *HTTPClient) RecognizeText(ctx context.Context, imageURI string) (TextResult, error) {
	var out TextResult
	err := c.post(ctx, "/ocr", imageURI, &out)
	return out, err
}

// CheckHealth checks that the inference service is up
func (c *HTTPClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, endpoint, imageURI string, out any) error {
	path := geometry.LocalPath(imageURI)
	imageData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		return fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed with status: %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

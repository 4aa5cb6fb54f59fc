package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/MechDevelopment/mrbeam-backend/internal/config"
	"github.com/MechDevelopment/mrbeam-backend/internal/domain"
)

const (
	formField     = "file"
	formFilename  = "beam.png"
	maxBodyRead   = 10 << 20
	maxBodyReport = 512
)

var errUndecodable = errors.New("undecodable response")

// Client calls the external detection service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	log        *zap.Logger

	// newBackOff is replaced in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

func NewClient(cfg config.InferenceConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		log:        log.Named("inference"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.RandomizationFactor = 0.5
			return b
		},
	}
}

// Predict sends the image to the detection service and returns its detections
// in the order the service reported them.
func (c *Client) Predict(ctx context.Context, image []byte) ([]domain.Detection, error) {
	if len(image) == 0 {
		return nil, domain.NewValidationError("image is empty")
	}

	body, contentType, err := encodeImage(image)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	var detections []domain.Detection
	attempt := 0

	operation := func() error {
		attempt++
		result, err := c.predictOnce(ctx, body, contentType)
		if err != nil {
			if !isTransient(err) {
				return backoff.Permanent(err)
			}
			c.log.Warn("Inference attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		detections = result
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		var inferenceErr *domain.InferenceError
		if errors.As(err, &inferenceErr) {
			return nil, err
		}
		return nil, &domain.InferenceError{Err: err}
	}

	c.log.Debug("Inference finished",
		zap.Int("attempts", attempt),
		zap.Int("detections", len(detections)))

	return detections, nil
}

func (c *Client) predictOnce(ctx context.Context, body []byte, contentType string) ([]domain.Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.InferenceError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	if err != nil {
		return nil, &domain.InferenceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.InferenceError{
			StatusCode: resp.StatusCode,
			Body:       excerpt(payload),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var detections []domain.Detection
	if err := json.Unmarshal(payload, &detections); err != nil {
		return nil, &domain.InferenceError{Body: excerpt(payload), Err: fmt.Errorf("%w: %v", errUndecodable, err)}
	}
	if detections == nil {
		detections = []domain.Detection{}
	}

	return detections, nil
}

// Health checks that the detection service answers on /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyReport))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}

	return nil
}

func encodeImage(image []byte) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(formField, formFilename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return body.Bytes(), writer.FormDataContentType(), nil
}

// isTransient reports whether another attempt may succeed: transport failures
// and gateway style statuses. Bad statuses and bodies are final.
func isTransient(err error) bool {
	var inferenceErr *domain.InferenceError
	if !errors.As(err, &inferenceErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, errUndecodable) {
		return false
	}

	switch inferenceErr.StatusCode {
	case 0:
		return true
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func excerpt(body []byte) string {
	if len(body) > maxBodyReport {
		body = body[:maxBodyReport]
	}
	return strings.TrimSpace(string(body))
}

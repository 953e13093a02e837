package customvision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/trashvision/internal/classifier"
	"github.com/example/trashvision/internal/logging"
)

// Config carries the settings for one Custom Vision prediction project.
type Config struct {
	Endpoint      string
	PredictionKey string
	TrainingKey   string
	ProjectID     string
	PublishedName string
}

// Client calls the Azure Custom Vision prediction REST API. Published
// iteration names drift when a model is retrained, so the client retries a
// small set of known iteration names, and falls back from the prediction key
// to the training key when the former is rejected.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Fallback iteration names the project has been published under.
var legacyIterations = []string{"RecycleSmart-Prediction", "RecycleSmart"}

// New builds a Custom Vision client. The configuration may be incomplete;
// in that case Classify reports classifier.ErrUnconfigured per request so
// the caller can degrade instead of the process refusing to start.
func New(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("customvision"),
	}
}

// Name implements classifier.Client.
func (c *Client) Name() string { return "custom_vision" }

// Classify implements classifier.Client.
func (c *Client) Classify(ctx context.Context, image []byte) ([]classifier.RawPrediction, error) {
	if c.cfg.Endpoint == "" || c.cfg.ProjectID == "" || (c.cfg.PredictionKey == "" && c.cfg.TrainingKey == "") {
		return nil, classifier.ErrUnconfigured
	}

	keys := []struct {
		header string
		value  string
	}{
		{"Prediction-Key", c.cfg.PredictionKey},
		{"Training-Key", c.cfg.TrainingKey},
	}

	var lastErr error
	for _, key := range keys {
		if key.value == "" {
			continue
		}
		for _, iteration := range c.iterations() {
			predictions, err := c.classifyOnce(ctx, key.header, key.value, iteration, image)
			if err == nil {
				return predictions, nil
			}
			if ctx.Err() != nil {
				return nil, logging.NewOperationError("customvision.classify", "", ctx.Err())
			}
			lastErr = err
			c.logger.Warn("prediction attempt failed",
				zap.String("iteration", iteration),
				zap.String("key_header", key.header),
				zap.Error(err))
		}
	}
	return nil, logging.NewOperationError("customvision.classify", "", lastErr)
}

func (c *Client) iterations() []string {
	names := []string{c.cfg.PublishedName}
	for _, name := range legacyIterations {
		if name != c.cfg.PublishedName {
			names = append(names, name)
		}
	}
	return names
}

type predictionResponse struct {
	Predictions []struct {
		TagName     string  `json:"tagName"`
		Probability float64 `json:"probability"`
	} `json:"predictions"`
}

func (c *Client) classifyOnce(ctx context.Context, keyHeader, keyValue, iteration string, image []byte) ([]classifier.RawPrediction, error) {
	url := fmt.Sprintf("%s/customvision/v3.0/Prediction/%s/classify/iterations/%s/image",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.ProjectID, iteration)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set(keyHeader, keyValue)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, fmt.Errorf("prediction endpoint returned status %d", resp.StatusCode)
	}

	var payload predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode prediction response: %w", err)
	}

	predictions := make([]classifier.RawPrediction, 0, len(payload.Predictions))
	for _, pred := range payload.Predictions {
		predictions = append(predictions, classifier.RawPrediction{
			Tag:         pred.TagName,
			Probability: pred.Probability,
		})
	}
	return predictions, nil
}

package localmodel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/trashvision/internal/classifier"
	"github.com/example/trashvision/internal/logging"
)

// Client calls a self-hosted classification model over HTTP. It is an
// optional second provider; its predictions are merged with the primary
// provider's before normalization.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a client for the model server at endpoint. An empty endpoint is
// allowed and makes every Classify call report classifier.ErrUnconfigured.
func New(endpoint string, logger *zap.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("localmodel"),
	}
}

// Name implements classifier.Client.
func (c *Client) Name() string { return "local_model" }

type classifyResponse struct {
	Predictions []struct {
		Tag         string  `json:"tag"`
		Probability float64 `json:"probability"`
	} `json:"predictions"`
}

// Classify implements classifier.Client. The model server accepts a
// form-encoded base64 image and answers with a JSON prediction list.
func (c *Client) Classify(ctx context.Context, image []byte) ([]classifier.RawPrediction, error) {
	if c.endpoint == "" {
		return nil, classifier.ErrUnconfigured
	}

	form := url.Values{}
	form.Set("image_data", base64.StdEncoding.EncodeToString(image))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/classify", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, logging.NewOperationError("localmodel.classify", "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, logging.NewOperationError("localmodel.classify", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, logging.NewOperationError("localmodel.classify", "",
			fmt.Errorf("model server returned status %d", resp.StatusCode))
	}

	var payload classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, logging.NewOperationError("localmodel.classify", "",
			fmt.Errorf("decode model response: %w", err))
	}

	predictions := make([]classifier.RawPrediction, 0, len(payload.Predictions))
	for _, pred := range payload.Predictions {
		predictions = append(predictions, classifier.RawPrediction{
			Tag:         pred.Tag,
			Probability: pred.Probability,
		})
	}
	return predictions, nil
}

// Package embedding 提供人脸 Embedding 服务客户端
package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mam-search-api/internal/application/search"
	"mam-search-api/internal/config"
)

var tracer = otel.Tracer("embedding")

const (
	defaultModel     = "buffalo_l"
	defaultDimension = 512
	defaultTimeout   = 10 * time.Second
	facePath         = "/v1/faces/embed"
)

// Client 人脸 Embedding HTTP 客户端
type Client struct {
	endpoint      string
	model         string
	dimension     int
	minConfidence float64
	httpClient    *http.Client
}

type embedRequest struct {
	Image string `json:"image"`
	Model string `json:"model"`
}

type detectedFace struct {
	Embedding  []float32 `json:"embedding"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
}

type embedResponse struct {
	Faces []detectedFace `json:"faces"`
}

// NewClient 创建人脸 Embedding 客户端
func NewClient(cfg *config.EmbeddingConfig) (*Client, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = facePath
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = defaultDimension
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		endpoint:      u.String(),
		model:         model,
		dimension:     dim,
		minConfidence: cfg.MinConfidence,
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

// EmbedFace 返回图片中第一个满足置信度阈值的人脸向量
func (c *Client) EmbedFace(ctx context.Context, image []byte) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "embedding.EmbedFace")
	defer span.End()

	resp, err := c.doEmbed(ctx, image)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("faces", len(resp.Faces)))

	for _, f := range resp.Faces {
		if f.Confidence < c.minConfidence {
			continue
		}
		if len(f.Embedding) != c.dimension {
			err := fmt.Errorf("unexpected embedding dimension %d, want %d", len(f.Embedding), c.dimension)
			span.RecordError(err)
			return nil, err
		}
		return f.Embedding, nil
	}
	return nil, search.ErrNoFaceDetected
}

func (c *Client) doEmbed(ctx context.Context, image []byte) (*embedResponse, error) {
	reqBody, err := json.Marshal(&embedRequest{
		Image: base64.StdEncoding.EncodeToString(image),
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer httpResp.Body.Close()

	// 服务以 422 表示图片中没有人脸
	if httpResp.StatusCode == http.StatusUnprocessableEntity {
		return nil, search.ErrNoFaceDetected
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("embedding request failed: status=%d body=%s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp embedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	return &resp, nil
}

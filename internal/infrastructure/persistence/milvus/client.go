// Package milvus 提供人脸向量在 Milvus 中的存储与检索
package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mam-search-api/internal/config"
)

var tracer = otel.Tracer("milvus")

const (
	defaultDimension      = 512
	defaultHNSWM          = 16
	defaultEfConstruction = 200
	defaultSearchEf       = 128
)

// Client Milvus 客户端
type Client struct {
	milvus client.Client
	config *config.MilvusConfig
}

// NewClient 创建 Milvus 客户端
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	ccfg := client.Config{Address: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)}
	if cfg.User != "" && cfg.Password != "" {
		ccfg.Username = cfg.User
		ccfg.Password = cfg.Password
	}

	milvusClient, err := client.NewClient(ctx, ccfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		milvus: milvusClient,
		config: cfg,
	}, nil
}

// Close 关闭 Milvus 连接
func (c *Client) Close() error {
	return c.milvus.Close()
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.HealthCheck")
	defer span.End()

	if _, err := c.milvus.HasCollection(ctx, c.CollectionName(CollectionFaces)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// CollectionName 获取带前缀的集合名称
func (c *Client) CollectionName(name string) string {
	if c.config.CollectionPrefix != "" {
		return c.config.CollectionPrefix + "_" + name
	}
	return name
}

// Dimension 向量维度
func (c *Client) Dimension() int {
	if c.config.Dimension > 0 {
		return c.config.Dimension
	}
	return defaultDimension
}

// MetricType 距离度量，默认 COSINE
func (c *Client) MetricType() entity.MetricType {
	switch strings.ToUpper(c.config.MetricType) {
	case "L2":
		return entity.L2
	case "IP":
		return entity.IP
	default:
		return entity.COSINE
	}
}

func (c *Client) hnswParams() (m, efConstruction, ef int) {
	m, efConstruction, ef = c.config.HNSWM, c.config.HNSWEfConstruction, c.config.SearchEf
	if m <= 0 {
		m = defaultHNSWM
	}
	if efConstruction <= 0 {
		efConstruction = defaultEfConstruction
	}
	if ef <= 0 {
		ef = defaultSearchEf
	}
	return m, efConstruction, ef
}

// LoadCollection 加载集合到内存
func (c *Client) LoadCollection(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "milvus.LoadCollection",
		trace.WithAttributes(attribute.String("collection", name)))
	defer span.End()

	return c.milvus.LoadCollection(ctx, c.CollectionName(name), false)
}

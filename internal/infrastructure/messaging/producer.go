package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mam-search-api/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// MessageTypeFaceIndex 人脸索引任务消息类型
const MessageTypeFaceIndex = "face_index"

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	// 透传 trace_id 供消费端关联
	if sc := span.SpanContext(); sc.IsValid() {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	// 近似裁剪，限制流长度
	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// MediaJobMessage 媒体任务消息
type MediaJobMessage struct {
	JobID    string `json:"job_id"`
	TenantID string `json:"tenant_id"`
	AssetID  string `json:"asset_id,omitempty"`
	JobType  string `json:"job_type"`
	Priority int    `json:"priority"`
}

// PublishMediaJob 发布媒体任务
func (p *Producer) PublishMediaJob(ctx context.Context, job *MediaJobMessage) (string, error) {
	msg, err := NewMessage(job.JobID, job.JobType, job.TenantID, job)
	if err != nil {
		return "", fmt.Errorf("failed to build message: %w", err)
	}

	// 附带优先级与请求 ID
	msg.SetMetadata("priority", strconv.Itoa(job.Priority))
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}

	return p.Publish(ctx, StreamMediaJobs, msg)
}

package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mam-search-api/pkg/logger"
)

func TestBackoffConfig_CalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 8*time.Second, cfg.CalculateBackoff(3))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(10))
}

func TestDecodeMessage_FaceIndexJob(t *testing.T) {
	job := &MediaJobMessage{JobID: "job-1", TenantID: "tenant-1", AssetID: "asset-1", JobType: MessageTypeFaceIndex, Priority: 5}
	msg, err := NewMessage(job.JobID, job.JobType, job.TenantID, job)
	require.NoError(t, err)
	msg.SetMetadata("request_id", "req-9")

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	decoded, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": string(raw)}})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeFaceIndex, decoded.Type)
	assert.Equal(t, "req-9", decoded.GetMetadata("request_id"))

	var payload MediaJobMessage
	require.NoError(t, decoded.UnmarshalPayload(&payload))
	assert.Equal(t, *job, payload)
}

func TestDecodeMessage_Malformed(t *testing.T) {
	_, err := decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{}})
	assert.Error(t, err)

	_, err = decodeMessage(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": "{"}})
	assert.Error(t, err)
}

func TestMessageContext(t *testing.T) {
	msg := &Message{ID: "job-1", TenantID: "tenant-1", Metadata: map[string]string{"request_id": "req-1", "trace_id": "abc"}}
	ctx := messageContext(context.Background(), msg)

	assert.Equal(t, "tenant-1", ctx.Value(logger.TenantIDKey))
	assert.Equal(t, "job-1", ctx.Value(logger.JobIDKey))
	assert.Equal(t, "req-1", ctx.Value(logger.RequestIDKey))
	assert.Equal(t, "abc", ctx.Value(logger.TraceIDKey))
}

func TestGroupWithPrefix(t *testing.T) {
	assert.Equal(t, ConsumerGroupJobWorker, GroupWithPrefix("", ConsumerGroupJobWorker))
	assert.Equal(t, ConsumerGroup("mam-cg-job-worker"), GroupWithPrefix("mam", ConsumerGroupJobWorker))
}

func TestNewConsumer_Defaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{Stream: StreamMediaJobs, Group: ConsumerGroupJobWorker})
	assert.Equal(t, 5*time.Second, c.blockTimeout)
	assert.Equal(t, 3, c.retryLimit)
	assert.Equal(t, DefaultBackoffConfig(), c.backoff)
	assert.Equal(t, 5*time.Minute, c.reclaimIdle)
	assert.Equal(t, "dlq:stream:media:jobs", StreamMediaJobs.DLQStream())
}

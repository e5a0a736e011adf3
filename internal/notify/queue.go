// Package notify pushes best-effort outbound notifications about work-item
// activity to per-tenant webhook endpoints. The whole subsystem is
// optional: intake never waits on it and never fails because of it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supportdesk/intake-engine/internal/domain"
)

// QueueKey is the Redis sorted set holding pending notifications.
const QueueKey = "notify_queue"

// Notification is the payload POSTed to a tenant's webhook URL.
type Notification struct {
	TenantID   string          `json:"tenant_id"`
	WorkItemID string          `json:"work_item_id"`
	Kind       string          `json:"kind"`
	Category   string          `json:"category"`
	Priority   domain.Priority `json:"priority"`
	Status     domain.Status   `json:"status"`
	At         time.Time       `json:"at"`
}

// Queue enqueues notifications into Redis, scored by enqueue time.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue queues a notification for the work item. Implements the agent's
// Notifier.
func (q *Queue) Enqueue(ctx context.Context, kind string, item domain.WorkItem) error {
	n := Notification{
		TenantID:   item.TenantID,
		WorkItemID: item.ID,
		Kind:       kind,
		Category:   item.Category,
		Priority:   item.Priority,
		Status:     item.Status,
		At:         time.Now().UTC(),
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	err = q.client.ZAdd(ctx, QueueKey, redis.Z{
		Score:  float64(time.Now().UnixMicro()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("queuing notification: %w", err)
	}
	return nil
}

// Depth returns the number of pending notifications.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, QueueKey).Result()
}

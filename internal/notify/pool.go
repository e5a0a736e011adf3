package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// URLResolver maps a tenant id to its notification webhook URL. An empty
// URL disables notifications for that tenant.
type URLResolver interface {
	WebhookURL(tenantID string) string
}

// Pool polls the Redis notification queue and delivers notifications with
// a fixed number of worker goroutines. Delivery is best-effort: a failed
// POST is logged and the notification dropped.
type Pool struct {
	client     *redis.Client
	resolver   URLResolver
	httpClient *http.Client
	logger     *slog.Logger

	numWorkers   int
	pollInterval time.Duration
	batchSize    int64

	jobs chan Notification
	wg   sync.WaitGroup
}

func NewPool(client *redis.Client, resolver URLResolver, numWorkers int, logger *slog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &Pool{
		client:       client,
		resolver:     resolver,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
		numWorkers:   numWorkers,
		pollInterval: 250 * time.Millisecond,
		batchSize:    20,
		jobs:         make(chan Notification, numWorkers*2),
	}
}

// Start launches the poller and workers. They run until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	p.wg.Add(1)
	go p.pollLoop(ctx)

	p.logger.Info("notification pool started", "num_workers", p.numWorkers)
}

// Wait blocks until the poller and all workers have stopped.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) pollLoop(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Pool) poll(ctx context.Context) {
	now := float64(time.Now().UnixMicro())

	results, err := p.client.ZRangeByScore(ctx, QueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatFloat(now, 'f', -1, 64),
		Count: p.batchSize,
	}).Result()
	if err != nil {
		p.logger.Error("failed to poll notification queue", "error", err)
		return
	}

	for _, member := range results {
		// ZRem returns 0 if another poller already claimed this entry.
		removed, err := p.client.ZRem(ctx, QueueKey, member).Result()
		if err != nil {
			p.logger.Error("failed to remove notification from queue", "error", err)
			continue
		}
		if removed == 0 {
			continue
		}

		var n Notification
		if err := json.Unmarshal([]byte(member), &n); err != nil {
			p.logger.Error("failed to unmarshal notification", "error", err)
			continue
		}

		select {
		case p.jobs <- n:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for n := range p.jobs {
		p.deliver(ctx, n)
	}
}

func (p *Pool) deliver(ctx context.Context, n Notification) {
	url := p.resolver.WebhookURL(n.TenantID)
	if url == "" {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		p.logger.Error("failed to marshal notification payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		p.logger.Error("failed to build notification request", "error", err, "tenant_id", n.TenantID)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notification-Kind", n.Kind)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("notification delivery failed",
			"tenant_id", n.TenantID,
			"work_item_id", n.WorkItemID,
			"error", err,
		)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		p.logger.Warn("notification rejected by endpoint",
			"tenant_id", n.TenantID,
			"work_item_id", n.WorkItemID,
			"status_code", resp.StatusCode,
		)
		return
	}

	p.logger.Info("notification delivered",
		"tenant_id", n.TenantID,
		"work_item_id", n.WorkItemID,
		"kind", n.Kind,
	)
}

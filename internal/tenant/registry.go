// Package tenant verifies tenant keys against a registry file. The core
// engine never sees keys; it trusts the tenant id this package authorizes.
package tenant

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxAge is how long the parsed registry file is trusted before the
// next Verify re-reads it.
const DefaultMaxAge = 30 * time.Second

var (
	// ErrUnknownTenant means no registry record exists for the tenant.
	// No record means no access: there is no allow-when-unconfigured
	// fallback.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrInvalidKey means the presented key does not match the stored hash.
	ErrInvalidKey = errors.New("invalid tenant key")
)

// Record is one tenant's registry entry. Keys are stored as sha256 hex
// hashes, never in the clear.
type Record struct {
	TenantID   string `yaml:"tenant_id"`
	KeyHash    string `yaml:"key_hash"`
	WebhookURL string `yaml:"webhook_url,omitempty"`
}

// Registry loads tenant records from a YAML file with a max-age cache and
// manual invalidation. It is injected into consumers; there is no
// package-level instance.
type Registry struct {
	path        string
	maxAge      time.Duration
	devAllowAll bool
	now         func() time.Time

	mu       sync.Mutex
	records  map[string]Record
	loadedAt time.Time
}

// NewRegistry creates a registry reading path. devAllowAll skips key
// verification entirely; callers must treat it as a development-only
// escape hatch and log its use loudly at startup.
func NewRegistry(path string, maxAge time.Duration, devAllowAll bool) *Registry {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Registry{
		path:        path,
		maxAge:      maxAge,
		devAllowAll: devAllowAll,
		now:         time.Now,
	}
}

// HashKey returns the sha256 hex digest stored in registry files.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Verify checks a presented tenant key. Unknown tenants and mismatched
// keys are both rejected; a missing or unreadable registry file denies
// everyone rather than allowing anyone.
func (r *Registry) Verify(tenantID, key string) error {
	if r.devAllowAll {
		return nil
	}

	rec, err := r.lookup(tenantID)
	if err != nil {
		return err
	}

	presented := HashKey(key)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(rec.KeyHash)) != 1 {
		return ErrInvalidKey
	}
	return nil
}

// WebhookURL returns the tenant's outbound notification endpoint, or ""
// when none is configured.
func (r *Registry) WebhookURL(tenantID string) string {
	rec, err := r.lookup(tenantID)
	if err != nil {
		return ""
	}
	return rec.WebhookURL
}

// Invalidate drops the cache so the next lookup re-reads the file.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadedAt = time.Time{}
}

func (r *Registry) lookup(tenantID string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadedAt.IsZero() || r.now().Sub(r.loadedAt) >= r.maxAge {
		records, err := loadRecords(r.path)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
		}
		r.records = records
		r.loadedAt = r.now()
	}

	rec, ok := r.records[tenantID]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
	}
	return rec, nil
}

func loadRecords(path string) (map[string]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		Tenants []Record `yaml:"tenants"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	records := make(map[string]Record, len(file.Tenants))
	for _, rec := range file.Tenants {
		if rec.TenantID == "" || rec.KeyHash == "" {
			continue
		}
		records[rec.TenantID] = rec
	}
	return records, nil
}

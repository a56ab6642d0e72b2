// Package labels caches the account's label catalog and maps human label
// names to platform label ids. Label catalogs change rarely, so entries are
// served from memory for a TTL before being refetched.
package labels

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
	"github.com/AllWayChat/chat-plugin/pkg/logger"
)

const component = "labels"

// DefaultTTL is how long a fetched catalog is trusted.
const DefaultTTL = time.Hour

// API is the slice of the platform client the cache needs.
type API interface {
	GetLabels(ctx context.Context, acc *allway.Account) ([]allway.Label, error)
}

type cached struct {
	labels    []allway.Label
	fetchedAt time.Time
}

// Cache is a per-account label catalog cache. Safe for concurrent use;
// concurrent refreshes of the same account are last-writer-wins, which is
// fine because both fetched the same catalog.
type Cache struct {
	ttl time.Duration

	mu        sync.RWMutex
	byAccount map[allway.AccountID]cached
}

// NewCache creates a cache. ttl <= 0 means DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:       ttl,
		byAccount: make(map[allway.AccountID]cached),
	}
}

// Labels returns the account's catalog, from cache when fresh.
func (c *Cache) Labels(ctx context.Context, api API, acc *allway.Account) ([]allway.Label, error) {
	c.mu.RLock()
	entry, ok := c.byAccount[acc.AccountID]
	c.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.labels, nil
	}

	labels, err := api.GetLabels(ctx, acc)
	if err != nil {
		// A stale catalog beats no catalog.
		if ok {
			logger.WarnCF(component, "Label refresh failed, serving stale catalog", map[string]interface{}{
				"account_id": acc.AccountID,
				"error":      err.Error(),
			})
			return entry.labels, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.byAccount[acc.AccountID] = cached{labels: labels, fetchedAt: time.Now()}
	c.mu.Unlock()
	return labels, nil
}

// IDsByNames maps label names to ids, matching on the exact title or its
// slug. Unknown names are skipped.
func (c *Cache) IDsByNames(ctx context.Context, api API, acc *allway.Account, names []string) ([]allway.LabelID, error) {
	if len(names) == 0 {
		return nil, nil
	}

	labels, err := c.Labels(ctx, api, acc)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]allway.LabelID, len(labels)*2)
	for _, l := range labels {
		byKey[l.Title] = l.ID
		byKey[Slug(l.Title)] = l.ID
	}

	var ids []allway.LabelID
	for _, name := range names {
		id, ok := byKey[name]
		if !ok {
			id, ok = byKey[Slug(name)]
		}
		if !ok {
			logger.WarnCF(component, "Unknown label name", map[string]interface{}{
				"account_id": acc.AccountID,
				"label":      name,
			})
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Invalidate drops the account's cached catalog.
func (c *Cache) Invalidate(accountID allway.AccountID) {
	c.mu.Lock()
	delete(c.byAccount, accountID)
	c.mu.Unlock()
}

// Slug lowercases a label name and collapses separators the way the platform
// slugs label titles: "Pós Venda" and "pos-venda" address the same label
// as far as matching goes, minus accents which the platform keeps.
func Slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	lastDash := false
	for _, r := range name {
		switch {
		case r == ' ' || r == '_' || r == '-':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		default:
			b.WriteRune(r)
			lastDash = false
		}
	}
	return strings.TrimRight(b.String(), "-")
}

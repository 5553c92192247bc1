// Package proxypool fetches public proxies, validates them and serves
// (type, count) queries for the orchestrator.
package proxypool

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
)

// Store holds one set per proxy type, keyed by (host, port, type) so
// duplicate identities collapse.
type Store struct {
	sets        map[domain.ProxyType]*xsync.Map[domain.ProxyKey, domain.Proxy]
	lastRefresh atomic.Int64
}

func NewStore() *Store {
	return &Store{
		sets: map[domain.ProxyType]*xsync.Map[domain.ProxyKey, domain.Proxy]{
			domain.ProxyHTTP:   xsync.NewMap[domain.ProxyKey, domain.Proxy](),
			domain.ProxySOCKS4: xsync.NewMap[domain.ProxyKey, domain.Proxy](),
			domain.ProxySOCKS5: xsync.NewMap[domain.ProxyKey, domain.Proxy](),
		},
	}
}

// Upsert adds a freshly fetched proxy, keeping any existing entry so a
// validated proxy is not downgraded by a refresh.
func (s *Store) Upsert(p domain.Proxy) {
	if set, ok := s.sets[p.Type]; ok {
		set.LoadOrStore(p.Key(), p)
	}
}

// Put replaces the stored entry with a validation result.
func (s *Store) Put(p domain.Proxy) {
	if set, ok := s.sets[p.Type]; ok {
		set.Store(p.Key(), p)
	}
}

// Remove drops a proxy from its set.
func (s *Store) Remove(key domain.ProxyKey) {
	if set, ok := s.sets[key.Type]; ok {
		set.Delete(key)
	}
}

// Select returns up to count proxies. ptype 0 means all types; validOnly
// filters out anything not positively validated.
func (s *Store) Select(ptype, count int, validOnly bool) []domain.Proxy {
	var out []domain.Proxy
	for t, set := range s.sets {
		if ptype != 0 && int(t) != ptype {
			continue
		}
		set.Range(func(_ domain.ProxyKey, p domain.Proxy) bool {
			if validOnly && (p.IsValid == nil || !*p.IsValid) {
				return true
			}
			out = append(out, p)
			return len(out) < count
		})
		if len(out) >= count {
			break
		}
	}
	return out
}

// Candidates returns up to limit proxies of a type (0 = all) for validation,
// regardless of current validity.
func (s *Store) Candidates(ptype, limit int) []domain.Proxy {
	var out []domain.Proxy
	for t, set := range s.sets {
		if ptype != 0 && int(t) != ptype {
			continue
		}
		set.Range(func(_ domain.ProxyKey, p domain.Proxy) bool {
			out = append(out, p)
			return len(out) < limit
		})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Counts reports the size of each type's set.
func (s *Store) Counts() map[string]int {
	out := make(map[string]int, len(s.sets))
	for t, set := range s.sets {
		out[t.String()] = set.Size()
	}
	return out
}

func (s *Store) MarkRefreshed() {
	s.lastRefresh.Store(time.Now().UnixNano())
}

func (s *Store) LastRefresh() time.Time {
	ns := s.lastRefresh.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Stale reports whether the pool is older than the refresh interval.
func (s *Store) Stale(interval time.Duration) bool {
	last := s.LastRefresh()
	return last.IsZero() || time.Since(last) > interval
}

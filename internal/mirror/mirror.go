package mirror

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/singhaditya73/MediFlow/internal/domain"
)

// Mirror is the in-process presentation cache. It holds whole collections
// keyed by principal and is never authoritative: a miss falls through to the
// relational mirror, a stale entry is simply evicted. Writes replace the
// entire collection; there are no per-item updates.
type Mirror struct {
	cache *cache.Cache
}

func NewMirror(ttl, cleanup time.Duration) *Mirror {
	return &Mirror{
		cache: cache.New(ttl, cleanup),
	}
}

func ownedKey(owner string) string         { return "owned:" + owner }
func sharedByKey(granter string) string    { return "shared-by:" + granter }
func sharedWithKey(receiver string) string { return "shared-with:" + receiver }

func (m *Mirror) ReplaceOwned(owner string, records []domain.HealthRecord) {
	m.cache.Set(ownedKey(owner), records, cache.DefaultExpiration)
}

func (m *Mirror) ReplaceSharedBy(granter string, grants []domain.GrantView) {
	m.cache.Set(sharedByKey(granter), grants, cache.DefaultExpiration)
}

func (m *Mirror) ReplaceSharedWith(receiver string, grants []domain.GrantView) {
	m.cache.Set(sharedWithKey(receiver), grants, cache.DefaultExpiration)
}

func (m *Mirror) Owned(owner string) ([]domain.HealthRecord, bool) {
	x, found := m.cache.Get(ownedKey(owner))
	if !found {
		return nil, false
	}
	records, ok := x.([]domain.HealthRecord)
	return records, ok
}

func (m *Mirror) SharedBy(granter string) ([]domain.GrantView, bool) {
	return m.views(sharedByKey(granter))
}

func (m *Mirror) SharedWith(receiver string) ([]domain.GrantView, bool) {
	return m.views(sharedWithKey(receiver))
}

func (m *Mirror) views(key string) ([]domain.GrantView, bool) {
	x, found := m.cache.Get(key)
	if !found {
		return nil, false
	}
	views, ok := x.([]domain.GrantView)
	return views, ok
}

// Invalidate drops every collection the principal appears in as a key.
func (m *Mirror) Invalidate(principal string) {
	m.cache.Delete(ownedKey(principal))
	m.cache.Delete(sharedByKey(principal))
	m.cache.Delete(sharedWithKey(principal))
}

// PruneExpired evicts grant collections whose stored statuses have drifted
// from the clock, so the next read re-derives them. Expiry is never written
// back; it is always recomputed.
func (m *Mirror) PruneExpired(now time.Time) int {
	pruned := 0
	for key, item := range m.cache.Items() {
		views, ok := item.Object.([]domain.GrantView)
		if !ok {
			continue
		}
		for _, v := range views {
			if v.Status != v.StatusAt(now) {
				m.cache.Delete(key)
				pruned++
				break
			}
		}
	}
	return pruned
}

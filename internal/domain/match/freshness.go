package match

import "time"

const (
	DefaultLiveTTL = 30 * time.Second
	DefaultIdleTTL = 5 * time.Minute
)

// FreshnessPolicy decides how long a synced snapshot may be served without a refresh.
type FreshnessPolicy struct {
	LiveTTL time.Duration
	IdleTTL time.Duration
}

func DefaultFreshnessPolicy() FreshnessPolicy {
	return FreshnessPolicy{
		LiveTTL: DefaultLiveTTL,
		IdleTTL: DefaultIdleTTL,
	}
}

func (p FreshnessPolicy) normalized() FreshnessPolicy {
	defaults := DefaultFreshnessPolicy()
	if p.LiveTTL <= 0 {
		p.LiveTTL = defaults.LiveTTL
	}
	if p.IdleTTL <= 0 {
		p.IdleTTL = defaults.IdleTTL
	}
	return p
}

// TTL returns the freshness window of m. The boolean is false when the
// snapshot never expires.
func (p FreshnessPolicy) TTL(m Match) (time.Duration, bool) {
	p = p.normalized()
	if m.Finalized && m.HasGoals() {
		return 0, false
	}
	if IsLiveStatus(m.StatusShort) {
		return p.LiveTTL, true
	}
	return p.IdleTTL, true
}

// Remaining returns how long m stays fresh at now. A snapshot that was never
// synced is stale. The boolean is false when the snapshot never expires.
func (p FreshnessPolicy) Remaining(m Match, now time.Time) (time.Duration, bool) {
	ttl, expires := p.TTL(m)
	if !expires {
		return 0, false
	}
	if m.LastSyncedAt == nil {
		return 0, true
	}
	remaining := m.LastSyncedAt.Add(ttl).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

func (p FreshnessPolicy) IsFresh(m Match, now time.Time) bool {
	remaining, expires := p.Remaining(m, now)
	if !expires {
		return true
	}
	return remaining > 0
}

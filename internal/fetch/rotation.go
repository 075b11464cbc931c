package fetch

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrNoRotationEntries means the pool was empty at construction time,
// which is a fatal configuration error for a run.
var ErrNoRotationEntries = errors.New("no rotation entries configured")

type ProxyKind string

const (
	ProxyDirect  ProxyKind = "direct"
	ProxyForward ProxyKind = "forward-proxy"
	ProxyOnion   ProxyKind = "onion-proxy"
)

// Entry is one identity/egress configuration used for a fetch attempt.
type Entry struct {
	UserAgent string
	ProxyURL  string
	Kind      ProxyKind
}

type entryState struct {
	entry    Entry
	requests int
	failures int
	lastUsed time.Time
	excluded bool
}

// Rotation hands out identity/egress entries and tracks per-entry
// failure counters. An entry past the failure limit is excluded until a
// global reset, which fires when no entries remain eligible. All state
// sits behind one mutex so the table stays safe under a worker pool.
type Rotation struct {
	mu        sync.Mutex
	entries   []*entryState
	failLimit int
	last      int
}

// NewRotation builds the pool: every user agent as a direct entry plus,
// per proxy, the pairing with the first user agent. An onion proxy
// address is tagged separately so callers can see which egress kind a
// fetch went through.
func NewRotation(userAgents, proxies []string, torProxy string, failLimit int) (*Rotation, error) {
	var entries []*entryState

	for _, ua := range userAgents {
		entries = append(entries, &entryState{entry: Entry{UserAgent: ua, Kind: ProxyDirect}})
	}

	for i, p := range proxies {
		ua := ""
		if len(userAgents) > 0 {
			ua = userAgents[i%len(userAgents)]
		}
		entries = append(entries, &entryState{entry: Entry{UserAgent: ua, ProxyURL: p, Kind: ProxyForward}})
	}

	if torProxy != "" {
		ua := ""
		if len(userAgents) > 0 {
			ua = userAgents[0]
		}
		entries = append(entries, &entryState{entry: Entry{UserAgent: ua, ProxyURL: torProxy, Kind: ProxyOnion}})
	}

	if len(entries) == 0 {
		return nil, ErrNoRotationEntries
	}

	return &Rotation{
		entries:   entries,
		failLimit: failLimit,
		last:      -1,
	}, nil
}

// Next picks a random eligible entry, avoiding the previous pick when
// more than one is eligible. When every entry is excluded, all failure
// counters are reset and the full pool becomes eligible again.
func (r *Rotation) Next() Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	eligible := r.eligibleLocked()
	if len(eligible) == 0 {
		r.resetLocked()
		eligible = r.eligibleLocked()
	}

	idx := eligible[rand.Intn(len(eligible))]
	if len(eligible) > 1 && idx == r.last {
		for _, alt := range eligible {
			if alt != r.last {
				idx = alt
				break
			}
		}
	}

	st := r.entries[idx]
	st.requests++
	st.lastUsed = time.Now()
	r.last = idx

	return st.entry
}

// RecordFailure bumps the failure counter for the entry and excludes it
// once the limit is reached.
func (r *Rotation) RecordFailure(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.findLocked(e); st != nil {
		st.failures++
		if st.failures >= r.failLimit {
			st.excluded = true
		}
	}
}

// RecordSuccess clears the consecutive-failure count for the entry.
func (r *Rotation) RecordSuccess(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st := r.findLocked(e); st != nil {
		st.failures = 0
	}
}

// Size reports the total pool size regardless of exclusions.
func (r *Rotation) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EligibleCount reports how many entries are currently in rotation.
func (r *Rotation) EligibleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.eligibleLocked())
}

func (r *Rotation) eligibleLocked() []int {
	var out []int
	for i, st := range r.entries {
		if !st.excluded {
			out = append(out, i)
		}
	}
	return out
}

func (r *Rotation) resetLocked() {
	for _, st := range r.entries {
		st.failures = 0
		st.excluded = false
	}
}

func (r *Rotation) findLocked(e Entry) *entryState {
	for _, st := range r.entries {
		if st.entry.UserAgent == e.UserAgent && st.entry.ProxyURL == e.ProxyURL {
			return st
		}
	}
	return nil
}

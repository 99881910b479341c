package lmstfytest

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lmstfy "github.com/lmstfy/lmstfy-go"
)

type jobState int

const (
	statePending jobState = iota // ready or delayed, ordered by readyAt
	stateReserved
	stateDead
)

type queueKey struct {
	namespace string
	queue     string
}

type storedJob struct {
	id          string
	key         queueKey
	data        []byte
	state       jobState
	seq         uint64
	publishedAt time.Time
	readyAt     time.Time
	expiresAt   time.Time // zero means never
	leaseUntil  time.Time
	remainTries int64
	deadSeq     uint64
}

// store is the in-memory job table behind a Server. All times come from
// now so that lifecycle transitions happen lazily on access.
type store struct {
	mu      sync.Mutex
	now     func() time.Time
	jobs    map[string]*storedJob
	seq     uint64
	changed chan struct{}
}

func newStore(now func() time.Time) *store {
	return &store{
		now:     now,
		jobs:    make(map[string]*storedJob),
		changed: make(chan struct{}),
	}
}

// wait returns a channel closed on the next mutation.
func (s *store) wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// notifyLocked wakes blocked consumers. Caller holds s.mu.
func (s *store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *store) publish(key queueKey, data []byte, ttl, tries, delay int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seq++
	j := &storedJob{
		id:          uuid.NewString(),
		key:         key,
		data:        append([]byte(nil), data...),
		state:       statePending,
		seq:         s.seq,
		publishedAt: now,
		readyAt:     now.Add(time.Duration(delay) * time.Second),
		remainTries: int64(tries),
	}
	if ttl > 0 {
		j.expiresAt = now.Add(time.Duration(ttl) * time.Second)
	}
	s.jobs[j.id] = j
	s.notifyLocked()
	return j.id
}

// tickLocked applies lease and TTL expiry as of now.
func (s *store) tickLocked(now time.Time) {
	for id, j := range s.jobs {
		if j.state == stateReserved && !now.Before(j.leaseUntil) {
			if j.remainTries > 0 {
				j.state = statePending
				j.readyAt = now
			} else {
				s.seq++
				j.state = stateDead
				j.deadSeq = s.seq
			}
		}
		if j.state == statePending && !j.expiresAt.IsZero() && !now.Before(j.expiresAt) {
			delete(s.jobs, id)
		}
	}
}

// pendingLocked returns the pending jobs of key in consume order.
func (s *store) pendingLocked(key queueKey) []*storedJob {
	var out []*storedJob
	for _, j := range s.jobs {
		if j.key == key && j.state == statePending {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].readyAt.Equal(out[b].readyAt) {
			return out[a].readyAt.Before(out[b].readyAt)
		}
		return out[a].seq < out[b].seq
	})
	return out
}

func (s *store) deadLocked(key queueKey) []*storedJob {
	var out []*storedJob
	for _, j := range s.jobs {
		if j.key == key && j.state == stateDead {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].deadSeq < out[b].deadSeq })
	return out
}

// reserve takes the first ready job scanning queues in order.
func (s *store) reserve(namespace string, queues []string, ttr int) (lmstfy.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.tickLocked(now)
	for _, q := range queues {
		pending := s.pendingLocked(queueKey{namespace, q})
		if len(pending) == 0 || pending[0].readyAt.After(now) {
			continue
		}
		j := pending[0]
		j.state = stateReserved
		j.remainTries--
		j.leaseUntil = now.Add(time.Duration(ttr) * time.Second)
		return s.snapshotLocked(j, now), true
	}
	return lmstfy.Job{}, false
}

// nextReadyIn reports how long until the earliest delayed job of queues
// becomes ready, or false when none is waiting.
func (s *store) nextReadyIn(namespace string, queues []string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var next time.Time
	for _, q := range queues {
		pending := s.pendingLocked(queueKey{namespace, q})
		if len(pending) > 0 && (next.IsZero() || pending[0].readyAt.Before(next)) {
			next = pending[0].readyAt
		}
	}
	for _, j := range s.jobs {
		if j.key.namespace == namespace && j.state == stateReserved && (next.IsZero() || j.leaseUntil.Before(next)) {
			next = j.leaseUntil
		}
	}
	if next.IsZero() {
		return 0, false
	}
	return next.Sub(now), true
}

func (s *store) ack(key queueKey, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.key != key || j.state == stateDead {
		return false
	}
	delete(s.jobs, id)
	s.notifyLocked()
	return true
}

func (s *store) get(key queueKey, id string) (lmstfy.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.tickLocked(now)
	j, ok := s.jobs[id]
	if !ok || j.key != key || j.state == stateDead {
		return lmstfy.Job{}, false
	}
	return s.snapshotLocked(j, now), true
}

func (s *store) size(key queueKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickLocked(s.now())
	return len(s.pendingLocked(key))
}

func (s *store) peek(key queueKey) (lmstfy.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.tickLocked(now)
	pending := s.pendingLocked(key)
	if len(pending) == 0 {
		return lmstfy.Job{}, false
	}
	return s.snapshotLocked(pending[0], now), true
}

func (s *store) peekDead(key queueKey) (lmstfy.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.tickLocked(now)
	dead := s.deadLocked(key)
	if len(dead) == 0 {
		return lmstfy.Job{}, false
	}
	return s.snapshotLocked(dead[0], now), true
}

func (s *store) deadSize(key queueKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickLocked(s.now())
	return len(s.deadLocked(key))
}

// respawn moves up to limit dead jobs back to ready with one try and a
// fresh ttl.
func (s *store) respawn(key queueKey, limit, ttl int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.tickLocked(now)
	dead := s.deadLocked(key)
	if limit < len(dead) {
		dead = dead[:limit]
	}
	for _, j := range dead {
		s.seq++
		j.state = statePending
		j.seq = s.seq
		j.readyAt = now
		j.remainTries = 1
		j.expiresAt = time.Time{}
		if ttl > 0 {
			j.expiresAt = now.Add(time.Duration(ttl) * time.Second)
		}
	}
	if len(dead) > 0 {
		s.notifyLocked()
	}
	return len(dead)
}

// expireLeases ends every reservation immediately.
func (s *store) expireLeases() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, j := range s.jobs {
		if j.state == stateReserved {
			j.leaseUntil = now
		}
	}
	s.tickLocked(now)
	s.notifyLocked()
}

func (s *store) snapshotLocked(j *storedJob, now time.Time) lmstfy.Job {
	var ttl int64
	if !j.expiresAt.IsZero() {
		ttl = int64(j.expiresAt.Sub(now).Round(time.Second) / time.Second)
		if ttl < 1 {
			ttl = 1
		}
	}
	return lmstfy.Job{
		ID:          j.id,
		Namespace:   j.key.namespace,
		Queue:       j.key.queue,
		Data:        append([]byte(nil), j.data...),
		TTL:         ttl,
		ElapsedMS:   now.Sub(j.publishedAt).Milliseconds(),
		RemainTries: j.remainTries,
	}
}

// Package sessions reconstructs search sessions from a stream of search
// events. Events are grouped by records.SessionKey, ordered by search time and
// split wherever the gap to the previous search exceeds InactivityLimitMs or
// the event carries no session seed.
package sessions

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/rankprep/internal/extract"
	"github.com/runnerr0/rankprep/internal/records"
)

// InactivityLimitMs is the largest gap between two searches of one session.
const InactivityLimitMs int64 = 30 * 60 * 1000

// IsNewSession reports 1 when the current search opens a new session: the
// seed is absent or zero, there is no previous search, or the gap to it is
// over the inactivity limit. Otherwise it reports 0.
func IsNewSession(current int64, last, seed sql.NullInt64) int {
	if !seed.Valid || seed.Int64 == 0 {
		return 1
	}
	if !last.Valid || current-last.Int64 > InactivityLimitMs {
		return 1
	}
	return 0
}

// partition is one session-candidate group; idx points into the event arena.
type partition struct {
	key records.SessionKey
	idx []int
}

// partitionEvents groups event indices by key, keeping partitions in order of
// first appearance.
func partitionEvents(events []records.SearchEvent) []partition {
	pos := make(map[records.SessionKey]int)
	var parts []partition
	for i := range events {
		k := events[i].Key()
		p, ok := pos[k]
		if !ok {
			p = len(parts)
			pos[k] = p
			parts = append(parts, partition{key: k})
		}
		parts[p].idx = append(parts[p].idx, i)
	}
	return parts
}

// assignSessionIDs orders one partition by search time and returns the
// ordered indices with the running session id of each.
func assignSessionIDs(events []records.SearchEvent, p partition) ([]int, []int) {
	order := make([]int, len(p.idx))
	copy(order, p.idx)
	sort.SliceStable(order, func(a, b int) bool {
		return events[order[a]].CurrentSearchTime < events[order[b]].CurrentSearchTime
	})

	ids := make([]int, len(order))
	running := 0
	for n, i := range order {
		var last sql.NullInt64
		if n > 0 {
			last = sql.NullInt64{Int64: events[order[n-1]].CurrentSearchTime, Valid: true}
		}
		running += IsNewSession(events[i].CurrentSearchTime, last, events[i].SessionSeed)
		ids[n] = running
	}
	return order, ids
}

// sessionize builds the sessions of one partition in session id order.
func sessionize(events []records.SearchEvent, p partition) []records.Session {
	order, ids := assignSessionIDs(events, p)

	var out []records.Session
	var groups [][]string
	for n, i := range order {
		e := events[i]
		if n == 0 || ids[n] != ids[n-1] {
			if len(out) > 0 {
				out[len(out)-1].Hotels = extract.Flatten(groups)
			}
			out = append(out, records.Session{
				Key:        p.key,
				SessionID:  ids[n],
				SearchTime: e.EventTime,
			})
			groups = groups[:0]
		}

		cur := &out[len(out)-1]
		cur.Searches++
		if e.EventTime.Before(cur.SearchTime) {
			cur.SearchTime = e.EventTime
		}
		groups = append(groups, e.RankedResults)
	}
	if len(out) > 0 {
		out[len(out)-1].Hotels = extract.Flatten(groups)
	}
	return out
}

// Sessionize builds all sessions sequentially.
func Sessionize(events []records.SearchEvent) []records.Session {
	var out []records.Session
	for _, p := range partitionEvents(events) {
		out = append(out, sessionize(events, p)...)
	}
	if out == nil {
		out = []records.Session{}
	}
	return out
}

// Builder sessionizes partitions concurrently, Workers at a time.
type Builder struct {
	Workers int
	logCtx  *log.Entry
}

// NewBuilder returns a Builder. A nil logCtx logs to the standard logger.
func NewBuilder(workers int, logCtx *log.Entry) *Builder {
	if workers < 1 {
		workers = 1
	}
	if logCtx == nil {
		logCtx = log.NewEntry(log.StandardLogger())
	}
	return &Builder{Workers: workers, logCtx: logCtx}
}

// Build returns the same sessions as Sessionize, in the same order.
func (b *Builder) Build(ctx context.Context, events []records.SearchEvent) ([]records.Session, error) {
	start := time.Now()
	parts := partitionEvents(events)
	results := make([][]records.Session, len(parts))

	logCtx := b.logCtx.WithField("events", len(events)).
		WithField("partitions", len(parts)).
		WithField("workers", b.Workers)
	logCtx.Debug("Building search sessions.")

	for ci := 0; ci < len(parts); ci += b.Workers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(ci+b.Workers, len(parts))
		var wg sync.WaitGroup
		wg.Add(end - ci)
		for pi := ci; pi < end; pi++ {
			go func(pi int) {
				defer wg.Done()
				results[pi] = sessionize(events, parts[pi])
			}(pi)
		}
		wg.Wait()
	}

	out := make([]records.Session, 0, len(parts))
	for _, r := range results {
		out = append(out, r...)
	}

	logCtx.WithField("sessions", len(out)).
		WithField("time_taken_in_ms", time.Since(start).Milliseconds()).
		Info("Built search sessions.")
	return out, nil
}

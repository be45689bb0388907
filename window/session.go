/*
 * Copyright 2025 The StreamWin Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package window

import (
	"fmt"
	"sort"
	"time"

	"github.com/streamwin/streamwin/types"
)

// Session is one open session window for a key. The ID is stable across
// extensions and merges, so callers can keep per-session state while the
// slot bounds move. A session covering records r1..rn spans
// [min(ri), max(ri)+gap).
type Session struct {
	ID   uint64
	Slot *types.TimeSlot
}

// SessionTracker maintains, per key, the ordered set of currently open
// session windows and merges them as records arrive. A record belongs to a
// session when its gap to the session's records is at most the configured
// gap; a record falling between two sessions within the gap of both
// bridges them into one.
//
// The tracker is not safe for concurrent use; callers must serialize
// access per key. Merge decisions depend on the full set of a key's open
// sessions, so concurrent insertions for one key would race.
type SessionTracker struct {
	gap      time.Duration
	nextID   uint64
	sessions map[string][]*Session // sorted by slot start
}

// NewSessionTracker creates a tracker with the given merge gap.
func NewSessionTracker(gap time.Duration) (*SessionTracker, error) {
	if gap <= 0 {
		return nil, fmt.Errorf("session gap must be positive, got %v", gap)
	}
	return &SessionTracker{
		gap:      gap,
		sessions: make(map[string][]*Session),
	}, nil
}

// Gap returns the configured merge gap.
func (st *SessionTracker) Gap() time.Duration {
	return st.gap
}

// Observe inserts a record instant for a key and returns the session it
// now belongs to, plus the IDs of sessions absorbed by transitive merges.
// The returned session's slot is extended in place, so previously handed
// out pointers to the surviving session stay valid.
func (st *SessionTracker) Observe(key string, t time.Time) (*Session, []uint64) {
	list := st.sessions[key]
	candidateEnd := t.Add(st.gap)

	// First session whose start is after t. Everything before idx starts
	// at or before t.
	idx := sort.Search(len(list), func(i int) bool {
		return list[i].Slot.Start.After(t)
	})

	var survivor *Session
	pos := idx

	if idx > 0 && !t.After(*list[idx-1].Slot.End) {
		// Record lands inside or at the edge of the preceding session.
		survivor = list[idx-1]
		pos = idx - 1
		if candidateEnd.After(*survivor.Slot.End) {
			end := candidateEnd
			survivor.Slot.End = &end
		}
	} else if idx < len(list) && !list[idx].Slot.Start.After(candidateEnd) {
		// Record reaches forward into the following session, pull its
		// start back to the record.
		survivor = list[idx]
		start := t
		survivor.Slot.Start = &start
		if candidateEnd.After(*survivor.Slot.End) {
			end := candidateEnd
			survivor.Slot.End = &end
		}
	} else {
		// Opens a fresh singleton session.
		st.nextID++
		start, end := t, candidateEnd
		survivor = &Session{
			ID:   st.nextID,
			Slot: types.NewTimeSlot(&start, &end),
		}
		list = append(list, nil)
		copy(list[idx+1:], list[idx:])
		list[idx] = survivor
	}

	// A record can bridge previously disjoint sessions, and each merge can
	// expose the next one, so keep folding successors in until the chain
	// breaks.
	var absorbed []uint64
	for pos+1 < len(list) && !list[pos+1].Slot.Start.After(*survivor.Slot.End) {
		next := list[pos+1]
		if next.Slot.End.After(*survivor.Slot.End) {
			end := *next.Slot.End
			survivor.Slot.End = &end
		}
		absorbed = append(absorbed, next.ID)
		list = append(list[:pos+1], list[pos+2:]...)
	}

	st.sessions[key] = list
	return survivor, absorbed
}

// Remove drops a closed session from the tracker so later records open a
// fresh session instead of resurrecting it.
func (st *SessionTracker) Remove(key string, id uint64) {
	list := st.sessions[key]
	for i, s := range list {
		if s.ID == id {
			st.sessions[key] = append(list[:i], list[i+1:]...)
			if len(st.sessions[key]) == 0 {
				delete(st.sessions, key)
			}
			return
		}
	}
}

// OpenSessions returns the key's open sessions in start order.
func (st *SessionTracker) OpenSessions(key string) []*Session {
	list := st.sessions[key]
	out := make([]*Session, len(list))
	copy(out, list)
	return out
}

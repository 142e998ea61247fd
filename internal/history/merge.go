package history

import (
	"sort"

	"savetrack/internal/core"
)

// Merge appends uploaded to existing, drops rows sharing a timestamp and
// current_saved amount (the later occurrence wins) and orders the result by
// timestamp. Timestamps are compared at core.TimestampPrecision, so a
// session's own CSV export merges back without duplicates. Neither input is
// modified.
func Merge(existing, uploaded []core.Entry) []core.Entry {
	all := make([]core.Entry, 0, len(existing)+len(uploaded))
	all = append(all, existing...)
	all = append(all, uploaded...)

	seen := make(map[core.EntryKey]struct{}, len(all))
	kept := make([]core.Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		k := e.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, e)
	}

	// kept is in reverse input order; restore it before the stable sort so
	// rows with equal timestamps keep their relative order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	SortByTimestamp(kept)
	return kept
}

// SortByTimestamp orders entries oldest first, keeping ties stable.
func SortByTimestamp(entries []core.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}

// Plan lists the store operations that turn a stored history into a merged
// one while leaving unchanged rows alone, so their IDs, versions and sync
// state survive.
type Plan struct {
	// Keep are stored rows carried over as they are.
	Keep []core.Entry
	// Update are merged rows replacing a stored row with the same key but
	// different inputs. ID, SessionID and Version come from the stored row.
	Update []core.Entry
	// Insert are merged rows whose key is not stored yet.
	Insert []core.Entry
	// Remove are IDs of stored rows missing from the merged history.
	Remove []int64
}

// Reconcile matches merged rows to stored rows by core.EntryKey.
func Reconcile(stored, merged []core.Entry) Plan {
	byKey := make(map[core.EntryKey][]core.Entry, len(stored))
	for _, s := range stored {
		k := s.Key()
		byKey[k] = append(byKey[k], s)
	}

	var p Plan
	for _, m := range merged {
		k := m.Key()
		candidates := byKey[k]
		if len(candidates) == 0 {
			m.ID = 0
			m.Version = 0
			p.Insert = append(p.Insert, m)
			continue
		}
		s := candidates[0]
		byKey[k] = candidates[1:]
		if s.SameInputs(m) {
			p.Keep = append(p.Keep, s)
			continue
		}
		m.ID, m.SessionID, m.Version = s.ID, s.SessionID, s.Version
		p.Update = append(p.Update, m)
	}

	for _, s := range stored {
		if rest := byKey[s.Key()]; containsID(rest, s.ID) {
			p.Remove = append(p.Remove, s.ID)
		}
	}
	return p
}

func containsID(entries []core.Entry, id int64) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

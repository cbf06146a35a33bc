package cache

import (
	"sort"
	"time"
)

type entryMeta struct {
	key       string
	size      int64
	fetchedAt time.Time
}

// evictionVictims returns the keys to drop, oldest first, so the remaining
// total fits maxBytes. keep is never selected, so a single oversized entry
// survives on its own.
func evictionVictims(items []entryMeta, maxBytes int64, keep string) []string {
	if maxBytes <= 0 {
		return nil
	}
	var total int64
	for _, m := range items {
		total += m.size
	}
	if total <= maxBytes {
		return nil
	}

	ordered := make([]entryMeta, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].fetchedAt.Equal(ordered[j].fetchedAt) {
			return ordered[i].fetchedAt.Before(ordered[j].fetchedAt)
		}
		return ordered[i].key < ordered[j].key
	})

	var victims []string
	for _, m := range ordered {
		if total <= maxBytes {
			break
		}
		if m.key == keep {
			continue
		}
		victims = append(victims, m.key)
		total -= m.size
	}
	return victims
}

func summarize(backend string, items []entryMeta) Stats {
	s := Stats{Backend: backend, Entries: len(items)}
	for i, m := range items {
		s.Bytes += m.size
		if i == 0 || m.fetchedAt.Before(s.Oldest) {
			s.Oldest = m.fetchedAt
		}
		if i == 0 || m.fetchedAt.After(s.Newest) {
			s.Newest = m.fetchedAt
		}
	}
	return s
}

package notify

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/trezcool/registrar/core/registration"
)

// Entry is a notification kept in the Feed.
type Entry struct {
	ID        uint64                `json:"id"`
	Message   string                `json:"message"`
	Severity  registration.Severity `json:"severity"`
	CreatedAt time.Time             `json:"created_at"`
}

// Feed keeps the recent notifications for ttl, like a snackbar would show them.
type Feed struct {
	entries *cache.Cache
	seq     uint64
}

var _ registration.Notifier = (*Feed)(nil)

func NewFeed(ttl time.Duration) *Feed {
	return &Feed{entries: cache.New(ttl, 2*ttl)}
}

func (f *Feed) Notify(message string, severity registration.Severity) {
	id := atomic.AddUint64(&f.seq, 1)
	f.entries.SetDefault(strconv.FormatUint(id, 10), Entry{
		ID:        id,
		Message:   message,
		Severity:  severity,
		CreatedAt: nowFunc().UTC(),
	})
}

// Recent returns the unexpired entries, most recent first.
func (f *Feed) Recent() []Entry {
	items := f.entries.Items()
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if e, ok := item.Object.(Entry); ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	return entries
}

// Flush drops every entry.
func (f *Feed) Flush() {
	f.entries.Flush()
}

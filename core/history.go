package core

import (
	"strings"

	"pkt.systems/cmdpane/schema"
)

const defaultHistoryMax = 50

// notBrowsing is the recall cursor value when no entry is selected.
const notBrowsing = -1

// historyBuffer keeps submitted commands oldest first. It is not safe for
// concurrent use; the runner guards it.
type historyBuffer struct {
	entries []string
	max     int
	cursor  int
}

func newHistory(max int) *historyBuffer {
	if max <= 0 {
		max = defaultHistoryMax
	}
	return &historyBuffer{max: max, cursor: notBrowsing}
}

// Record appends entry unless it is empty or repeats the newest entry. The
// recall cursor is reset either way.
func (h *historyBuffer) Record(entry string) bool {
	if h == nil {
		return false
	}
	if strings.TrimSpace(entry) == "" {
		return false
	}
	h.cursor = notBrowsing
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return false
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = append([]string(nil), h.entries[len(h.entries)-h.max:]...)
	}
	return true
}

// Recall moves the cursor and returns the entry it lands on. Cursor 0 is the
// newest entry; walking newer past it returns "" and stops browsing.
func (h *historyBuffer) Recall(dir schema.RecallDirection) string {
	if h == nil || len(h.entries) == 0 {
		return ""
	}
	switch dir {
	case schema.RecallOlder:
		if h.cursor < len(h.entries)-1 {
			h.cursor++
		}
	case schema.RecallNewer:
		if h.cursor == notBrowsing {
			return ""
		}
		h.cursor--
	}
	if h.cursor < 0 {
		h.cursor = notBrowsing
		return ""
	}
	return h.entries[len(h.entries)-1-h.cursor]
}

func (h *historyBuffer) Clear() {
	if h == nil {
		return
	}
	h.entries = nil
	h.cursor = notBrowsing
}

func (h *historyBuffer) Cursor() int {
	if h == nil {
		return notBrowsing
	}
	return h.cursor
}

func (h *historyBuffer) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

func (h *historyBuffer) Entries() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.entries...)
}

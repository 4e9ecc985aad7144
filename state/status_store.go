package state

import (
	"github.com/xmidt-org/talaria/configurator"
)

// StatusStore owns the observed status snapshot and the append-only log.
type StatusStore struct {
	snapshot    configurator.StatusSnapshot
	logs        []configurator.LogEntry
	resetReason string
	hasReason   bool
}

func NewStatusStore(initial configurator.StatusSnapshot, boot ...configurator.LogEntry) *StatusStore {
	s := &StatusStore{snapshot: initial.Clone()}
	for _, e := range boot {
		s.AppendLog(e)
	}
	return s
}

// AppendLog adds entry at the end of the log. There is no deduplication and no cap.
func (s *StatusStore) AppendLog(entry configurator.LogEntry) {
	s.logs = append(s.logs, entry.Clone())
}

// ReplaceSnapshot discards the previous snapshot entirely.
func (s *StatusStore) ReplaceSnapshot(snap configurator.StatusSnapshot) {
	s.snapshot = snap.Clone()
}

func (s *StatusStore) Snapshot() configurator.StatusSnapshot {
	return s.snapshot.Clone()
}

func (s *StatusStore) Logs() []configurator.LogEntry {
	out := make([]configurator.LogEntry, len(s.logs))
	for i, e := range s.logs {
		out[i] = e.Clone()
	}
	return out
}

func (s *StatusStore) LogCount() int { return len(s.logs) }

func (s *StatusStore) SetLastFactoryResetReason(reason string) {
	s.resetReason = reason
	s.hasReason = true
}

// LastFactoryResetReason reports the reason and whether it was ever set.
func (s *StatusStore) LastFactoryResetReason() (string, bool) {
	return s.resetReason, s.hasReason
}

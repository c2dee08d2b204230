package sorter

import (
	"context"
	"sort"
	"sync"

	"TeamWork/module/sorter/model"
)

// Memory implementations mirror the Mongo conditional-update semantics
// under a mutex; they back the unit tests.

type memQueueStore struct {
	mu    sync.Mutex
	items map[string]*model.QueueItem
	order int64 // tie-breaker for items created in the same millisecond
	seq   map[string]int64
}

func NewMemQueueStore() QueueStore {
	return &memQueueStore{
		items: make(map[string]*model.QueueItem),
		seq:   make(map[string]int64),
	}
}

func (s *memQueueStore) Add(ctx context.Context, values []string, nowMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		if _, ok := s.items[v]; ok {
			continue // unique on value: re-add is a no-op
		}
		s.order++
		s.items[v] = &model.QueueItem{Value: v, Status: model.StatusPending, CreatedAt: nowMS}
		s.seq[v] = s.order
	}
	return nil
}

func (s *memQueueStore) sortedLocked(filter func(*model.QueueItem) bool) []*model.QueueItem {
	var out []*model.QueueItem
	for _, it := range s.items {
		if filter(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return s.seq[out[i].Value] < s.seq[out[j].Value]
	})
	return out
}

func (s *memQueueStore) ListPending(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.sortedLocked(func(it *model.QueueItem) bool { return it.Status != model.StatusSent })
	values := make([]string, 0, len(items))
	for _, it := range items {
		values = append(values, it.Value)
	}
	return values, nil
}

func (s *memQueueStore) CountPending(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, it := range s.items {
		if it.Status == model.StatusPending {
			n++
		}
	}
	return n, nil
}

func (s *memQueueStore) ClearPending(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for v, it := range s.items {
		if it.Status != model.StatusSent {
			delete(s.items, v)
			delete(s.seq, v)
		}
	}
	return nil
}

func (s *memQueueStore) TakePending(ctx context.Context, n int, toStatus string, nowMS int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.sortedLocked(func(it *model.QueueItem) bool { return it.Status == model.StatusPending })
	if n > len(pending) {
		n = len(pending)
	}
	values := make([]string, 0, n)
	for _, it := range pending[:n] {
		it.Status = toStatus
		switch toStatus {
		case model.StatusAssigned:
			it.AssignedAt = nowMS
		case model.StatusSent:
			it.SentAt = nowMS
		}
		values = append(values, it.Value)
	}
	return values, nil
}

func (s *memQueueStore) ReleasePending(ctx context.Context, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		if it, ok := s.items[v]; ok && it.Status == model.StatusAssigned {
			it.Status = model.StatusPending
			it.AssignedAt = 0
		}
	}
	return nil
}

func (s *memQueueStore) MarkSent(ctx context.Context, values []string, nowMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		if it, ok := s.items[v]; ok {
			it.Status = model.StatusSent
			it.SentAt = nowMS
		}
	}
	return nil
}

// Status reports one item's status; test helper.
func (s *memQueueStore) Status(value string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[value]; ok {
		return it.Status, true
	}
	return "", false
}

type memAssignmentStore struct {
	mu   sync.Mutex
	rows []*model.Assignment
}

func NewMemAssignmentStore() AssignmentStore {
	return &memAssignmentStore{}
}

func (s *memAssignmentStore) Insert(ctx context.Context, a *model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	cp.Values = append([]string(nil), a.Values...)
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *memAssignmentStore) ClaimOne(ctx context.Context, userID string, nowMS int64) (*model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *model.Assignment
	for _, row := range s.rows {
		if row.UserID != userID || row.Status != model.StatusPending {
			continue
		}
		if oldest == nil || row.CreatedAt < oldest.CreatedAt {
			oldest = row
		}
	}
	if oldest == nil {
		return nil, nil
	}
	oldest.Status = model.StatusSent
	oldest.SentAt = nowMS
	cp := *oldest
	cp.Values = append([]string(nil), oldest.Values...)
	return &cp, nil
}

func (s *memAssignmentStore) ListPending(ctx context.Context, userID string) ([]model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Assignment
	for _, row := range s.rows {
		if row.UserID == userID && row.Status == model.StatusPending {
			cp := *row
			cp.Values = append([]string(nil), row.Values...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

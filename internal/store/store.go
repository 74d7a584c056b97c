package store

import (
	"context"
	"sort"
	"sync"

	"deepfake-guard/internal/model"
)

// Memory keeps users, tokens and scans in process memory. It satisfies the
// repository interfaces of the auth and detection packages.
type Memory struct {
	mu sync.RWMutex

	usersByID         map[string]model.UserRecord
	userIDByEmail     map[string]string
	userIDByFederated map[string]string

	tokenByUserID map[string]string
	userIDByToken map[string]string

	scansByID     map[string]model.ScanResult
	scanIDsByUser map[string][]string
}

func New() *Memory {
	return &Memory{
		usersByID:         make(map[string]model.UserRecord),
		userIDByEmail:     make(map[string]string),
		userIDByFederated: make(map[string]string),
		tokenByUserID:     make(map[string]string),
		userIDByToken:     make(map[string]string),
		scansByID:         make(map[string]model.ScanResult),
		scanIDsByUser:     make(map[string][]string),
	}
}

func (s *Memory) Close() error { return nil }

func (s *Memory) CreateUser(_ context.Context, u model.UserRecord) error {
	if u.ID == "" || u.Email == "" {
		return model.ErrMissingInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByID[u.ID]; ok {
		return model.ErrDuplicateEmail
	}
	if _, ok := s.userIDByEmail[u.Email]; ok {
		return model.ErrDuplicateEmail
	}
	if u.FederatedID != "" {
		if _, ok := s.userIDByFederated[u.FederatedID]; ok {
			return model.ErrDuplicateEmail
		}
		s.userIDByFederated[u.FederatedID] = u.ID
	}
	s.usersByID[u.ID] = u
	s.userIDByEmail[u.Email] = u.ID
	return nil
}

func (s *Memory) UpdateUser(_ context.Context, u model.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.usersByID[u.ID]
	if !ok {
		return model.ErrNotFound
	}
	if owner, ok := s.userIDByEmail[u.Email]; ok && owner != u.ID {
		return model.ErrDuplicateEmail
	}
	if u.FederatedID != "" {
		if owner, ok := s.userIDByFederated[u.FederatedID]; ok && owner != u.ID {
			return model.ErrDuplicateEmail
		}
	}

	delete(s.userIDByEmail, existing.Email)
	if existing.FederatedID != "" {
		delete(s.userIDByFederated, existing.FederatedID)
	}
	s.userIDByEmail[u.Email] = u.ID
	if u.FederatedID != "" {
		s.userIDByFederated[u.FederatedID] = u.ID
	}
	s.usersByID[u.ID] = u
	return nil
}

func (s *Memory) UserByID(_ context.Context, id string) (model.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByID[id]
	if !ok {
		return model.UserRecord{}, model.ErrNotFound
	}
	return u, nil
}

func (s *Memory) UserByEmail(ctx context.Context, email string) (model.UserRecord, error) {
	s.mu.RLock()
	id, ok := s.userIDByEmail[email]
	s.mu.RUnlock()
	if !ok {
		return model.UserRecord{}, model.ErrNotFound
	}
	return s.UserByID(ctx, id)
}

func (s *Memory) UserByFederatedID(ctx context.Context, subject string) (model.UserRecord, error) {
	if subject == "" {
		return model.UserRecord{}, model.ErrNotFound
	}
	s.mu.RLock()
	id, ok := s.userIDByFederated[subject]
	s.mu.RUnlock()
	if !ok {
		return model.UserRecord{}, model.ErrNotFound
	}
	return s.UserByID(ctx, id)
}

// PutToken replaces the user's active token.
func (s *Memory) PutToken(_ context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return model.ErrMissingInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tokenByUserID[userID]; ok {
		delete(s.userIDByToken, prev)
	}
	s.tokenByUserID[userID] = token
	s.userIDByToken[token] = userID
	return nil
}

func (s *Memory) UserIDForToken(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.userIDByToken[token]
	if !ok {
		return "", model.ErrNotFound
	}
	return userID, nil
}

func (s *Memory) InsertScan(_ context.Context, scan model.ScanResult) error {
	if scan.ID == "" || scan.UserID == "" {
		return model.ErrMissingInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scansByID[scan.ID]; ok {
		return model.ErrOperationFailed
	}
	s.scansByID[scan.ID] = cloneScan(scan)
	s.scanIDsByUser[scan.UserID] = append(s.scanIDsByUser[scan.UserID], scan.ID)
	return nil
}

func (s *Memory) CountScans(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scansByID), nil
}

func (s *Memory) ScanByID(_ context.Context, id string) (model.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scan, ok := s.scansByID[id]
	if !ok {
		return model.ScanResult{}, model.ErrNotFound
	}
	return cloneScan(scan), nil
}

// ScansByUser returns the user's scans newest first, ties broken by id.
func (s *Memory) ScansByUser(_ context.Context, userID string) ([]model.ScanResult, error) {
	s.mu.RLock()
	ids := s.scanIDsByUser[userID]
	result := make([]model.ScanResult, 0, len(ids))
	for _, id := range ids {
		result = append(result, cloneScan(s.scansByID[id]))
	}
	s.mu.RUnlock()

	SortNewestFirst(result)
	return result, nil
}

func SortNewestFirst(scans []model.ScanResult) {
	sort.SliceStable(scans, func(i, j int) bool {
		if !scans[i].ScanDate.Equal(scans[j].ScanDate) {
			return scans[i].ScanDate.After(scans[j].ScanDate)
		}
		return scans[i].ID < scans[j].ID
	})
}

func cloneScan(scan model.ScanResult) model.ScanResult {
	markers := make([]model.Marker, len(scan.DetectedMarkers))
	for i, m := range scan.DetectedMarkers {
		if m.Location != nil {
			loc := *m.Location
			m.Location = &loc
		}
		markers[i] = m
	}
	scan.DetectedMarkers = markers
	return scan
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
)

// FileStore implements RuleStore and HistoryStore on top of JSON flat files,
// one rules file and one history log per scope. Writes go through a temp file
// and rename so a failed write never corrupts the previous state.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-backed rule store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.NewStorageError("init", "", err)
	}
	return &FileStore{dir: dir}, nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) rulesPath(scope string) string {
	return filepath.Join(s.dir, sanitizeScope(scope)+"_alerts.json")
}

func (s *FileStore) historyPath(scope string) string {
	return filepath.Join(s.dir, sanitizeScope(scope)+"_history.jsonl")
}

// sanitizeScope keeps scope names safe to use as file name components.
func sanitizeScope(scope string) string {
	if scope == "" {
		return "default"
	}
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	return r.Replace(scope)
}

// List returns all rules for a scope. A missing file is first-run steady
// state and yields an empty slice.
func (s *FileStore) List(ctx context.Context, scope string) ([]models.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(scope)
}

func (s *FileStore) loadLocked(scope string) ([]models.AlertRule, error) {
	data, err := os.ReadFile(s.rulesPath(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return []models.AlertRule{}, nil
		}
		return nil, apperrors.NewStorageError("list", scope, err)
	}

	var rules []models.AlertRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, apperrors.NewStorageError("list", scope, err)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].ID < rules[j].ID
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules, nil
}

func (s *FileStore) saveLocked(scope string, rules []models.AlertRule) error {
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("save", scope, err)
	}

	path := s.rulesPath(scope)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.NewStorageError("save", scope, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewStorageError("save", scope, err)
	}
	return nil
}

// Save replaces the full rule set for a scope.
func (s *FileStore) Save(ctx context.Context, scope string, rules []models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(scope, rules)
}

// Add inserts a single rule.
func (s *FileStore) Add(ctx context.Context, scope string, rule models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.loadLocked(scope)
	if err != nil {
		return err
	}
	rules = append(rules, rule)
	return s.saveLocked(scope, rules)
}

// Remove deletes a rule by id.
func (s *FileStore) Remove(ctx context.Context, scope, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.loadLocked(scope)
	if err != nil {
		return err
	}

	kept := rules[:0]
	found := false
	for _, r := range rules {
		if r.ID == ruleID {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("%w: %s", apperrors.ErrRuleNotFound, ruleID)
	}
	return s.saveLocked(scope, kept)
}

// UpdateFields applies only the supplied fields.
func (s *FileStore) UpdateFields(ctx context.Context, scope, ruleID string, patch RulePatch) error {
	if patch.IsZero() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.loadLocked(scope)
	if err != nil {
		return err
	}

	found := false
	for i := range rules {
		if rules[i].ID != ruleID {
			continue
		}
		found = true
		if patch.Target != nil {
			rules[i].Target = *patch.Target
		}
		if patch.Direction != nil {
			rules[i].Direction = *patch.Direction
		}
		if patch.Enabled != nil {
			rules[i].Enabled = *patch.Enabled
		}
		if patch.LastFiredAt != nil {
			t := *patch.LastFiredAt
			rules[i].LastFiredAt = &t
		}
		break
	}
	if !found {
		return fmt.Errorf("%w: %s", apperrors.ErrRuleNotFound, ruleID)
	}
	return s.saveLocked(scope, rules)
}

// RecordFiring appends a firing to the scope's history log.
func (s *FileStore) RecordFiring(ctx context.Context, scope string, firing models.Firing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(firing)
	if err != nil {
		return apperrors.NewStorageError("history", scope, err)
	}

	f, err := os.OpenFile(s.historyPath(scope), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.NewStorageError("history", scope, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return apperrors.NewStorageError("history", scope, err)
	}
	return nil
}

// ListFirings returns the most recent firings, newest first.
func (s *FileStore) ListFirings(ctx context.Context, scope string, limit int) ([]models.Firing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.historyPath(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("history", scope, err)
	}

	var firings []models.Firing
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var f models.Firing
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			return nil, apperrors.NewStorageError("history", scope, err)
		}
		firings = append(firings, f)
	}

	// Newest first
	for i, j := 0, len(firings)-1; i < j; i, j = i+1, j-1 {
		firings[i], firings[j] = firings[j], firings[i]
	}
	if limit > 0 && len(firings) > limit {
		firings = firings[:limit]
	}
	return firings, nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "costguard/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.runs.jsonl    (append-only JSON Lines, one line per sweep)
//   - <prefix>.actions.jsonl (append-only JSON Lines, one line per action)
type fileStore struct {
	log logx.Logger

	mu      sync.Mutex
	runs    *os.File
	actions *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	rf, err := os.OpenFile(prefix+".runs.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	af, err := os.OpenFile(prefix+".actions.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		_ = rf.Close()
		return nil, err
	}

	return &fileStore{log: log, runs: rf, actions: af}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.runs != nil {
		err1 = s.runs.Close()
		s.runs = nil
	}
	if s.actions != nil {
		err2 = s.actions.Close()
		s.actions = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) AppendRun(ctx context.Context, r RunRecord) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	return s.appendLine(s.runs, r)
}

func (s *fileStore) AppendAction(ctx context.Context, a ActionRecord) error {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	return s.appendLine(s.actions, a)
}

func (s *fileStore) appendLine(f *os.File, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == nil {
		return ErrDisabled
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = f.Write(b)
	return err
}

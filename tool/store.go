package tool

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/bytedance/sonic"
)

// StateStore is a file-backed JSON key-value store used for selection state
// persistence. Values are opaque JSON blobs keyed by namespace strings, so the
// file survives the set of namespaces changing between versions.
type StateStore struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// OpenStateStore loads (or initializes) the store at path.
func OpenStateStore(path string) (*StateStore, error) {
	s := &StateStore{
		path: path,
		data: make(map[string]json.RawMessage),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %v", err)
	}
	if err := sonic.Unmarshal(raw, &s.data); err != nil {
		// A corrupt state file should not brick the share flow; start fresh.
		DefaultLogger.Warnf("state file %s is corrupt, starting empty: %v", path, err)
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Get returns the raw JSON stored under key.
func (s *StateStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Set stores raw JSON under key and writes the file through.
func (s *StateStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append(json.RawMessage(nil), value...)
	return s.flushLocked()
}

func (s *StateStore) flushLocked() error {
	raw, err := sonic.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %v", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %v", err)
	}
	return nil
}

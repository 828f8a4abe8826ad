package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
)

// SnapshotService persists named client state (map view, visible layers).
type SnapshotService struct {
	dataDir   string
	snapshots map[string]Snapshot
	mu        sync.RWMutex
}

// NewSnapshotService creates a snapshot store backed by <dataDir>/snapshots.json.
func NewSnapshotService(dataDir string) *SnapshotService {
	s := &SnapshotService{
		dataDir:   dataDir,
		snapshots: make(map[string]Snapshot),
	}
	s.loadFromDisk()
	return s
}

// List returns all snapshots ordered by name.
func (s *SnapshotService) List() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		result = append(result, snap)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Get returns a snapshot by name.
func (s *SnapshotService) Get(name string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[name]
	if !ok {
		return Snapshot{}, fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
	}
	return snap, nil
}

// Put creates or replaces a snapshot.
func (s *SnapshotService) Put(name string, snap Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Name = name
	snap.UpdatedAt = time.Now().UTC()

	prev, existed := s.snapshots[name]
	s.snapshots[name] = snap
	if err := s.saveToDisk(); err != nil {
		if existed {
			s.snapshots[name] = prev
		} else {
			delete(s.snapshots, name)
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// Delete removes a snapshot.
func (s *SnapshotService) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.snapshots[name]
	if !ok {
		return fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
	}
	delete(s.snapshots, name)
	if err := s.saveToDisk(); err != nil {
		s.snapshots[name] = prev
		return err
	}
	return nil
}

func (s *SnapshotService) configFile() string {
	return filepath.Join(s.dataDir, "snapshots.json")
}

// loadFromDisk loads snapshots. A missing or unreadable file starts empty.
func (s *SnapshotService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return
	}

	var snapshots map[string]Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil || snapshots == nil {
		glog.Warningf("ignoring %s: %v", s.configFile(), err)
		return
	}
	s.snapshots = snapshots
}

func (s *SnapshotService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.snapshots, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configFile(), data, 0644)
}

package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned for unknown datasets and snapshots.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when creating a dataset whose id is taken.
	ErrExists = errors.New("already exists")
)

// catalogue is the on-disk layout of datasets.yaml.
type catalogue struct {
	Datasets []Dataset `yaml:"datasets"`
}

// DatasetService manages the dataset catalogue.
type DatasetService struct {
	dataDir  string
	datasets map[string]Dataset
	bus      *EventBus
	mu       sync.RWMutex
}

// NewDatasetService creates a dataset service backed by <dataDir>/datasets.yaml.
func NewDatasetService(dataDir string, bus *EventBus) *DatasetService {
	s := &DatasetService{
		dataDir:  dataDir,
		datasets: make(map[string]Dataset),
		bus:      bus,
	}
	if err := s.loadFromDisk(); err != nil {
		glog.Warningf("dataset catalogue %s: %v", s.configFile(), err)
	}
	return s
}

// List returns all datasets ordered by id.
func (s *DatasetService) List() []Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Get returns a dataset by ID.
func (s *DatasetService) Get(id string) (Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.datasets[id]
	if !ok {
		return Dataset{}, fmt.Errorf("dataset %q: %w", id, ErrNotFound)
	}
	return d, nil
}

// Create adds a dataset to the catalogue.
func (s *DatasetService) Create(d Dataset) (Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = generateID(d.Name)
	}
	if d.ID == "" {
		return Dataset{}, fmt.Errorf("dataset needs an id or a name with letters or digits")
	}
	if _, exists := s.datasets[d.ID]; exists {
		return Dataset{}, fmt.Errorf("dataset %q: %w", d.ID, ErrExists)
	}

	s.datasets[d.ID] = normalize(d)
	if err := s.saveToDisk(); err != nil {
		delete(s.datasets, d.ID)
		return Dataset{}, err
	}
	s.bus.Publish(DatasetChanged{ID: d.ID, Action: "created"})
	return s.datasets[d.ID], nil
}

// Update replaces a dataset by ID.
func (s *DatasetService) Update(id string, d Dataset) (Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.datasets[id]
	if !exists {
		return Dataset{}, fmt.Errorf("dataset %q: %w", id, ErrNotFound)
	}

	d.ID = id
	s.datasets[id] = normalize(d)
	if err := s.saveToDisk(); err != nil {
		s.datasets[id] = prev
		return Dataset{}, err
	}
	s.bus.Publish(DatasetChanged{ID: id, Action: "updated"})
	return s.datasets[id], nil
}

// Delete removes a dataset by ID.
func (s *DatasetService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.datasets[id]
	if !exists {
		return fmt.Errorf("dataset %q: %w", id, ErrNotFound)
	}

	delete(s.datasets, id)
	if err := s.saveToDisk(); err != nil {
		s.datasets[id] = prev
		return err
	}
	s.bus.Publish(DatasetChanged{ID: id, Action: "deleted"})
	return nil
}

// configFile returns the path to the catalogue file.
func (s *DatasetService) configFile() string {
	return filepath.Join(s.dataDir, "datasets.yaml")
}

// loadFromDisk reads the catalogue. A missing file starts empty.
func (s *DatasetService) loadFromDisk() error {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	for _, d := range c.Datasets {
		if d.ID == "" {
			d.ID = generateID(d.Name)
		}
		s.datasets[d.ID] = normalize(d)
	}
	return nil
}

// saveToDisk persists the catalogue.
func (s *DatasetService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	c := catalogue{Datasets: make([]Dataset, 0, len(s.datasets))}
	for _, d := range s.datasets {
		c.Datasets = append(c.Datasets, d)
	}
	sort.Slice(c.Datasets, func(i, j int) bool { return c.Datasets[i].ID < c.Datasets[j].ID })

	data, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}
	return os.WriteFile(s.configFile(), data, 0644)
}

func normalize(d Dataset) Dataset {
	if d.GeometryName == "" {
		d.GeometryName = "the_geom"
	}
	return d
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Package store provides the in-memory implementations of the engine's
// data-source ports, used for local runs and tests. Production
// deployments substitute real clients behind the same interfaces.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/trialmind/trialmind/internal/ports"
)

// Memory is an in-memory ProtocolSource, StudyStore, and RegistryClient
// backed by maps keyed on study ID. Safe for concurrent reads and
// writes.
type Memory struct {
	mu        sync.RWMutex
	protocols map[string]*ports.Protocol
	metrics   map[string]*ports.StudyMetrics
	visits    map[string][]ports.VisitRecord
	events    map[string][]ports.AdverseEvent
	registry  map[string]*ports.RegistryRecord
}

var (
	_ ports.ProtocolSource = (*Memory)(nil)
	_ ports.StudyStore     = (*Memory)(nil)
	_ ports.RegistryClient = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		protocols: make(map[string]*ports.Protocol),
		metrics:   make(map[string]*ports.StudyMetrics),
		visits:    make(map[string][]ports.VisitRecord),
		events:    make(map[string][]ports.AdverseEvent),
		registry:  make(map[string]*ports.RegistryRecord),
	}
}

// PutProtocol stores a protocol definition.
func (s *Memory) PutProtocol(protocol *ports.Protocol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocols[protocol.StudyID] = protocol
}

// PutMetrics stores a study's data snapshot.
func (s *Memory) PutMetrics(studyID string, metrics *ports.StudyMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[studyID] = metrics
}

// AddVisits appends visit records for a study.
func (s *Memory) AddVisits(studyID string, records ...ports.VisitRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits[studyID] = append(s.visits[studyID], records...)
}

// AddAdverseEvents appends adverse events for a study.
func (s *Memory) AddAdverseEvents(studyID string, events ...ports.AdverseEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[studyID] = append(s.events[studyID], events...)
}

// PutRegistryRecord stores a registry record.
func (s *Memory) PutRegistryRecord(studyID string, record *ports.RegistryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[studyID] = record
}

func (s *Memory) GetProtocol(ctx context.Context, studyID string) (*ports.Protocol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	protocol, ok := s.protocols[studyID]
	if !ok {
		return nil, fmt.Errorf("no protocol for study %s", studyID)
	}
	return protocol, nil
}

func (s *Memory) GetMetrics(ctx context.Context, studyID string) (*ports.StudyMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	metrics, ok := s.metrics[studyID]
	if !ok {
		return nil, fmt.Errorf("no metrics for study %s", studyID)
	}
	return metrics, nil
}

func (s *Memory) GetVisits(ctx context.Context, studyID, patientID string) ([]ports.VisitRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.visits[studyID]
	if patientID == "" {
		return records, nil
	}
	var filtered []ports.VisitRecord
	for _, record := range records {
		if record.PatientID == patientID {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

func (s *Memory) GetAdverseEvents(ctx context.Context, studyID string) ([]ports.AdverseEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events[studyID], nil
}

func (s *Memory) Lookup(ctx context.Context, studyID string) (*ports.RegistryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.registry[studyID]
	if !ok {
		return nil, fmt.Errorf("study %s not found in registry", studyID)
	}
	return record, nil
}

// StaticSearcher is a LiteratureSearcher over a fixed citation set,
// matching on case-insensitive substrings of titles.
type StaticSearcher struct {
	name      string
	citations []ports.Citation
}

var _ ports.LiteratureSearcher = (*StaticSearcher)(nil)

// NewStaticSearcher creates a searcher over the given citations.
func NewStaticSearcher(name string, citations []ports.Citation) *StaticSearcher {
	return &StaticSearcher{name: name, citations: citations}
}

func (s *StaticSearcher) Name() string { return s.name }

func (s *StaticSearcher) Search(ctx context.Context, query string) ([]ports.Citation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := strings.Fields(strings.ToLower(query))
	var hits []ports.Citation
	for _, citation := range s.citations {
		title := strings.ToLower(citation.Title)
		for _, term := range terms {
			if strings.Contains(title, term) {
				hits = append(hits, citation)
				break
			}
		}
	}
	return hits, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/storage"
)

// storedDetection pairs a detection with the run that produced it.
type storedDetection struct {
	runID     string
	detection *domain.SandwichDetection
}

// DetectionStore is an in-memory implementation of storage.DetectionStore.
type DetectionStore struct {
	mu   sync.RWMutex
	data map[string]*storedDetection // keyed by run_id|detection_id
}

// NewDetectionStore creates a new in-memory detection store.
func NewDetectionStore() *DetectionStore {
	return &DetectionStore{
		data: make(map[string]*storedDetection),
	}
}

func detectionKey(runID, detectionID string) string {
	return runID + "|" + detectionID
}

// InsertBulk adds a run's detections atomically. Fails entire batch on any duplicate.
func (s *DetectionStore) InsertBulk(_ context.Context, runID string, detections []*domain.SandwichDetection) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(detections) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(detections))
	for _, d := range detections {
		if d == nil || d.DetectionID == "" {
			return storage.ErrInvalidInput
		}
		key := detectionKey(runID, d.DetectionID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, d := range detections {
		s.data[detectionKey(runID, d.DetectionID)] = &storedDetection{
			runID:     runID,
			detection: cloneDetection(d),
		}
	}

	return nil
}

// GetByRunID retrieves a run's detections ordered by start_ms ASC, detection_id ASC.
func (s *DetectionStore) GetByRunID(_ context.Context, runID string) ([]*domain.SandwichDetection, error) {
	return s.filter(func(sd *storedDetection) bool { return sd.runID == runID }), nil
}

// GetByAttacker retrieves all detections for an attacker across runs.
func (s *DetectionStore) GetByAttacker(_ context.Context, attacker string) ([]*domain.SandwichDetection, error) {
	return s.filter(func(sd *storedDetection) bool { return sd.detection.AttackerSigner == attacker }), nil
}

func (s *DetectionStore) filter(match func(*storedDetection) bool) []*domain.SandwichDetection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.SandwichDetection{}
	for _, sd := range s.data {
		if match(sd) {
			result = append(result, cloneDetection(sd.detection))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartMs != result[j].StartMs {
			return result[i].StartMs < result[j].StartMs
		}
		return result[i].DetectionID < result[j].DetectionID
	})
	return result
}

// cloneDetection deep-copies d so callers cannot mutate stored slices.
func cloneDetection(d *domain.SandwichDetection) *domain.SandwichDetection {
	copy := *d
	copy.VictimSigners = append([]string(nil), d.VictimSigners...)
	copy.ConfidenceReasons = append([]string(nil), d.ConfidenceReasons...)
	return &copy
}

var _ storage.DetectionStore = (*DetectionStore)(nil)

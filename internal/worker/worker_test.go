package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Cyclone/internal/analysis"
	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/merge"
	"github.com/shaiso/Cyclone/internal/mq"
	"github.com/shaiso/Cyclone/internal/ntuple"
	"github.com/shaiso/Cyclone/internal/repo"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// --- fakes ---

type memStore struct {
	mu       sync.Mutex
	parts    map[uuid.UUID]domain.Partition
	claimErr error
}

func newMemStore(parts ...*domain.Partition) *memStore {
	s := &memStore{parts: make(map[uuid.UUID]domain.Partition)}
	for _, p := range parts {
		s.parts[p.ID] = *p
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) ListQueued(_ context.Context, limit int) ([]*domain.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Partition
	for _, p := range s.parts {
		if p.Status == domain.PartitionQueued && len(out) < limit {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (s *memStore) Claim(_ context.Context, p *domain.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return s.claimErr
	}
	stored := s.parts[p.ID]
	if stored.Status != domain.PartitionQueued {
		return repo.ErrInvalidState
	}
	p.MarkRunning()
	stored.Status = p.Status
	s.parts[p.ID] = stored
	return nil
}

func (s *memStore) Finish(_ context.Context, p *domain.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[p.ID]; !ok {
		return repo.ErrNotFound
	}
	s.parts[p.ID] = *p
	return nil
}

func (s *memStore) get(id uuid.UUID) domain.Partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parts[id]
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads []mq.PartitionCompletedPayload
}

func (p *recordingPublisher) PublishPartitionCompleted(_ context.Context, payload mq.PartitionCompletedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

// --- helpers ---

func recoPartition(t *testing.T, cycleName string, n int, first, count int64) *domain.Partition {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reco.cyc")
	f, err := ntuple.Open(path, ntuple.ModeCreate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	recs := make([]domain.Record, n)
	for i := range recs {
		recs[i] = domain.Record{"El_N": 1, "El_p_T": []float64{50000}, "El_eta": []float64{0.3}}
	}
	if err := f.AppendRecords("", "Reco", recs); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	return &domain.Partition{
		ID:         uuid.New(),
		DispatchID: uuid.New(),
		Worker:     1,
		Cycle: domain.CycleConfig{
			Name: cycleName,
			Datasets: []domain.InputDataset{{
				Type:    domain.DataTypeData,
				Version: "1",
				Files:   []domain.FileEntry{{Path: path, Records: int64(n)}},
				Streams: []domain.StreamDescriptor{
					{Name: "Reco", Role: domain.RoleInput},
					{Name: "FirstCycleTree", Role: domain.RoleOutput},
				},
				MaxRecords:   -1,
				TotalRecords: int64(n),
			}},
		},
		First:     first,
		Count:     count,
		Status:    domain.PartitionQueued,
		CreatedAt: time.Now(),
	}
}

func newWorker(store PartitionStore, pub CompletionPublisher) *Worker {
	return New(Config{
		Store:        store,
		Publisher:    pub,
		Cycles:       analysis.NewRegistry(),
		PollInterval: 20 * time.Millisecond,
		Logger:       quiet(),
	})
}

// --- tests ---

func TestProcessPartition_Success(t *testing.T) {
	p := recoPartition(t, "FirstCycle", 10, 4, 5)
	store := newMemStore(p)
	pub := &recordingPublisher{}
	w := newWorker(store, pub)

	if err := w.processPartition(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := store.get(p.ID)
	if got.Status != domain.PartitionSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s (%s)", got.Status, got.Error)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Error("expected timestamps to be set")
	}

	b, err := merge.DecodeBundle(got.Bundle)
	if err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if b.Statistics().Processed != 5 {
		t.Errorf("expected 5 processed, got %d", b.Statistics().Processed)
	}
	if got.Log == "" {
		t.Error("expected captured worker log")
	}

	if len(pub.payloads) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(pub.payloads))
	}
	if pub.payloads[0].DispatchID != p.DispatchID || pub.payloads[0].Status != string(domain.PartitionSucceeded) {
		t.Errorf("unexpected completion payload: %+v", pub.payloads[0])
	}
}

func TestProcessPartition_UnknownCycleFailsWithStopExecution(t *testing.T) {
	p := recoPartition(t, "NoSuchCycle", 3, 0, 3)
	store := newMemStore(p)
	pub := &recordingPublisher{}
	w := newWorker(store, pub)

	if err := w.processPartition(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := store.get(p.ID)
	if got.Status != domain.PartitionFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if got.Severity != domain.StopExecution {
		t.Errorf("expected STOP_EXECUTION, got %s", got.Severity)
	}
	if got.Bundle != nil {
		t.Error("failed partition must not carry a bundle")
	}
	if len(pub.payloads) != 1 || pub.payloads[0].Error == "" {
		t.Errorf("expected failed completion with error, got %+v", pub.payloads)
	}
}

func TestProcessPartition_BadDatasetIndex(t *testing.T) {
	p := recoPartition(t, "FirstCycle", 3, 0, 3)
	p.DatasetIndex = 4
	store := newMemStore(p)
	w := newWorker(store, nil)

	if err := w.processPartition(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := store.get(p.ID)
	if got.Status != domain.PartitionFailed || got.Severity != domain.SkipDataset {
		t.Errorf("expected FAILED/SKIP_DATASET, got %s/%s", got.Status, got.Severity)
	}
}

func TestProcessPartition_NotQueued(t *testing.T) {
	p := recoPartition(t, "FirstCycle", 3, 0, 3)
	p.Status = domain.PartitionRunning
	w := newWorker(newMemStore(p), nil)

	err := w.processPartition(context.Background(), p.ID)
	if !errors.Is(err, ErrPartitionNotQueued) {
		t.Errorf("expected ErrPartitionNotQueued, got %v", err)
	}
}

func TestProcessPartition_ClaimRace(t *testing.T) {
	p := recoPartition(t, "FirstCycle", 3, 0, 3)
	store := newMemStore(p)
	store.claimErr = repo.ErrInvalidState
	w := newWorker(store, nil)

	err := w.processPartition(context.Background(), p.ID)
	if !errors.Is(err, ErrPartitionNotQueued) {
		t.Errorf("expected ErrPartitionNotQueued, got %v", err)
	}
	if store.get(p.ID).Status != domain.PartitionQueued {
		t.Error("partition claimed elsewhere must stay untouched")
	}
}

func TestProcessPartition_NotFound(t *testing.T) {
	w := newWorker(newMemStore(), nil)

	err := w.processPartition(context.Background(), uuid.New())
	if !errors.Is(err, ErrPartitionNotFound) {
		t.Errorf("expected ErrPartitionNotFound, got %v", err)
	}
}

func TestHandlePartitionReady(t *testing.T) {
	p := recoPartition(t, "FirstCycle", 4, 0, 4)
	store := newMemStore(p)
	w := newWorker(store, nil)

	delivery := &mq.Delivery{Message: mq.Message{
		Type:    mq.MessageTypePartitionReady,
		Payload: mq.PartitionReadyPayload{PartitionID: p.ID, DispatchID: p.DispatchID},
	}}
	if err := w.handlePartitionReady(context.Background(), delivery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.get(p.ID).Status != domain.PartitionSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", store.get(p.ID).Status)
	}

	// Повторная доставка подтверждается без обработки.
	if err := w.handlePartitionReady(context.Background(), delivery); err != nil {
		t.Errorf("redelivery should be acked, got %v", err)
	}

	// Удалённая раздача тоже подтверждается.
	gone := &mq.Delivery{Message: mq.Message{Payload: mq.PartitionReadyPayload{PartitionID: uuid.New()}}}
	if err := w.handlePartitionReady(context.Background(), gone); err != nil {
		t.Errorf("missing partition should be acked, got %v", err)
	}
}

func TestHandlePartitionReady_BadPayloadIsPermanent(t *testing.T) {
	w := newWorker(newMemStore(), nil)

	delivery := &mq.Delivery{Message: mq.Message{Payload: "not an object"}}
	err := w.handlePartitionReady(context.Background(), delivery)
	if !errors.Is(err, mq.ErrPermanent) {
		t.Errorf("expected ErrPermanent, got %v", err)
	}
}

func TestStart_PollingOnlyPicksUpQueued(t *testing.T) {
	a := recoPartition(t, "FirstCycle", 6, 0, 3)
	b := recoPartition(t, "FirstCycle", 6, 3, 3)
	store := newMemStore(a, b)
	w := newWorker(store, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if store.get(a.ID).Status.IsTerminal() && store.get(b.ID).Status.IsTerminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()

	if !w.IsStopped() {
		t.Error("expected worker to be stopped")
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		if got := store.get(id).Status; got != domain.PartitionSucceeded {
			t.Errorf("partition %s: expected SUCCEEDED, got %s", id, got)
		}
	}
}

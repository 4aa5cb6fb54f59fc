package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/MechDevelopment/mrbeam-backend/internal/domain"
	"github.com/MechDevelopment/mrbeam-backend/internal/repository"
)

type fakePredictor struct {
	mu         sync.Mutex
	calls      int
	detections []domain.Detection
	err        error
}

func (p *fakePredictor) Predict(_ context.Context, _ []byte) ([]domain.Detection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.detections, p.err
}

func (p *fakePredictor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeRepository struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*domain.PredictionRecord
	inserts     int
	fetches     int
	corrections int
	insertErr   error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{records: make(map[uuid.UUID]*domain.PredictionRecord)}
}

func (r *fakeRepository) Insert(_ context.Context, detections []domain.Detection, imageRef *string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if r.insertErr != nil {
		return uuid.Nil, r.insertErr
	}
	id := uuid.New()
	r.records[id] = &domain.PredictionRecord{ID: id, Detections: detections, ImageRef: imageRef}
	return id, nil
}

func (r *fakeRepository) FetchByID(_ context.Context, id uuid.UUID) (*domain.PredictionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	record, ok := r.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (r *fakeRepository) ApplyCorrection(_ context.Context, id uuid.UUID, corrected []domain.Detection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrections++
	record, ok := r.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	record.Correction = corrected
	return nil
}

func (r *fakeRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []ArchiveTask
	err   error
}

func (s *fakeScheduler) Submit(task ArchiveTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *fakeScheduler) Tasks() []ArchiveTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ArchiveTask(nil), s.tasks...)
}

// fakeStore is an in-memory S3Repository.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	heads    int
	puts     int
	headErr  error
	putErr   error
	getErr   error
	putBlock chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) ObjectExists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heads++
	if s.headErr != nil {
		return false, s.headErr
	}
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) UploadFile(ctx context.Context, key string, body io.Reader, _ int64, _ string) error {
	if s.putBlock != nil {
		select {
		case <-s.putBlock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) DownloadFile(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *fakeStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

var errBoom = errors.New("boom")

var _ repository.S3Repository = (*fakeStore)(nil)
var _ repository.PredictionRepository = (*fakeRepository)(nil)

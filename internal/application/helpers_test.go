package application_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"admissions-service/internal/application"
	"admissions-service/internal/filestore"
	"admissions-service/internal/metrics"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func validFields() application.Fields {
	return application.Fields{
		University:            "University of Cape Town",
		Program:               "BSc Computer Science",
		IntakeMonth:           "September",
		FullName:              "Chikondi Banda",
		Email:                 "chikondi@example.com",
		PassportNumber:        "MA123456",
		DateOfBirth:           "2001-04-17",
		AcademicQualification: "MSCE",
		ProgramReason:         "I enjoy building software",
		LearningStyle:         "Hands-on",
		PersonalityTraits:     "Curious",
		LogicAnswer:           "42",
		Hobbies:               "Chess",
	}
}

func attachment(name string, content []byte) *application.Attachment {
	return &application.Attachment{
		Filename: name,
		Size:     int64(len(content)),
		Content:  bytes.NewReader(content),
	}
}

// memoryStore is a filestore.Store that can be told to fail on the nth save.
type memoryStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saves   int
	failOn  int
	removed []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: map[string][]byte{}}
}

func (s *memoryStore) Save(ctx context.Context, field, originalName string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	if s.failOn > 0 && s.saves == s.failOn {
		return "", errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	ref := filestore.Reference(fmt.Sprintf("%s-%d%s", field, s.saves, originalName))
	s.files[ref] = data
	return ref, nil
}

func (s *memoryStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[ref]
	if !ok {
		return nil, filestore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) Remove(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, ref)
	s.removed = append(s.removed, ref)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []application.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event, ok := payload.(application.Event); ok {
		p.events = append(p.events, event)
	}
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingCreateRepo rejects every Create.
type failingCreateRepo struct {
	application.Repository
}

func (failingCreateRepo) Create(ctx context.Context, app *application.Application) (*application.Application, error) {
	return nil, errors.New("connection reset")
}

type intakeFixture struct {
	repo   application.Repository
	store  *memoryStore
	events *recordingPublisher
	intake *application.IntakeService
	review *application.ReviewService
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	return newIntakeFixtureWithRepo(t, application.NewMemoryRepository())
}

func newIntakeFixtureWithRepo(t *testing.T, repo application.Repository) *intakeFixture {
	t.Helper()
	store := newMemoryStore()
	events := &recordingPublisher{}
	logger := testLogger()

	return &intakeFixture{
		repo:   repo,
		store:  store,
		events: events,
		intake: application.NewIntakeService(repo, store, events, metrics.NewMock(), 10<<20, logger),
		review: application.NewReviewService(repo, events, metrics.NewMock(), logger),
	}
}

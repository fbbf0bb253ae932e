package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/events"
	"github.com/atelierhq/atelier-api/internal/service/auth"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// testLogger returns a logger that discards everything.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockBatchStore is a mock implementation of store.GenerationBatchStore
type MockBatchStore struct {
	mock.Mock
}

func (m *MockBatchStore) Create(ctx context.Context, batch *domain.GenerationBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchStore) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.GenerationBatch, error) {
	args := m.Called(ctx, id, userID)
	batch, _ := args.Get(0).(*domain.GenerationBatch)
	return batch, args.Error(1)
}

func (m *MockBatchStore) ListByTopic(ctx context.Context, userID, topicID uuid.UUID) ([]*domain.GenerationBatch, error) {
	args := m.Called(ctx, userID, topicID)
	batches, _ := args.Get(0).([]*domain.GenerationBatch)
	return batches, args.Error(1)
}

func (m *MockBatchStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockBatchStore) WithTx(tx *sql.Tx) store.GenerationBatchStore {
	return m
}

// MockGenerationStore is a mock implementation of store.GenerationStore
type MockGenerationStore struct {
	mock.Mock
}

func (m *MockGenerationStore) CreateMultiple(ctx context.Context, generations []*domain.Generation) error {
	args := m.Called(ctx, generations)
	return args.Error(0)
}

func (m *MockGenerationStore) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.Generation, error) {
	args := m.Called(ctx, batchID)
	gens, _ := args.Get(0).([]*domain.Generation)
	return gens, args.Error(1)
}

func (m *MockGenerationStore) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*domain.Generation, error) {
	args := m.Called(ctx, taskID)
	gen, _ := args.Get(0).(*domain.Generation)
	return gen, args.Error(1)
}

func (m *MockGenerationStore) AttachAsset(ctx context.Context, generationID uuid.UUID, asset domain.GeneratedAsset) error {
	args := m.Called(ctx, generationID, asset)
	return args.Error(0)
}

func (m *MockGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return m
}

// MockTaskStore is a mock implementation of store.AsyncTaskStore
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) CreateMultiple(ctx context.Context, tasks []*domain.AsyncTask) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AsyncTask, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*domain.AsyncTask)
	return task, args.Error(1)
}

func (m *MockTaskStore) MarkTerminal(
	ctx context.Context,
	taskID uuid.UUID,
	status domain.TaskStatus,
	taskErr *domain.TaskError,
) (bool, error) {
	args := m.Called(ctx, taskID, status, taskErr)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskStore) MarkBatchError(ctx context.Context, batchID uuid.UUID, taskErr *domain.TaskError) (int64, error) {
	args := m.Called(ctx, batchID, taskErr)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskStore) ListPendingOlderThan(ctx context.Context, age time.Duration) ([]*domain.AsyncTask, error) {
	args := m.Called(ctx, age)
	tasks, _ := args.Get(0).([]*domain.AsyncTask)
	return tasks, args.Error(1)
}

func (m *MockTaskStore) WithTx(tx *sql.Tx) store.AsyncTaskStore {
	return m
}

// MockFileStore is a mock implementation of store.FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) ResolveKey(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

// MockEventEmitter is a mock implementation of events.EventEmitter
type MockEventEmitter struct {
	mock.Mock
	emitted []*events.DispatchEvent
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.DispatchEvent) error {
	m.emitted = append(m.emitted, event)
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockUserStore is a mock implementation of store.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// MockJWTService is a mock implementation of auth.JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	args := m.Called(ctx, tokenString)
	claims, _ := args.Get(0).(*auth.Claims)
	return claims, args.Error(1)
}

// MockPasswordVerifier is a mock implementation of auth.PasswordVerifier
type MockPasswordVerifier struct {
	mock.Mock
}

func (m *MockPasswordVerifier) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	args := m.Called(hashedPassword, password)
	return args.Error(0)
}

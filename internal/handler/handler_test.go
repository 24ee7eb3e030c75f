package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"taskhub/internal/auth"
	"taskhub/internal/catalog"
	"taskhub/internal/creatorkyc"
	"taskhub/internal/delivery"
	"taskhub/internal/domain"
	"taskhub/internal/fileupload"
	"taskhub/internal/kvstore"
	"taskhub/internal/kyc"
	"taskhub/internal/middleware"
	"taskhub/internal/mockdata"
	"taskhub/internal/notification"
	"taskhub/internal/scheduler"
	"taskhub/internal/task"
	"taskhub/internal/taskdraft"
	"taskhub/pkg/config"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

// ==============================================================================
// IN-MEMORY REPOSITORIES
// ==============================================================================

type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return errs.ErrUserAlreadyExists
		}
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (m *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return errs.ErrUserNotFound
	}
	m.byID[u.ID] = *u
	return nil
}

type memTasks struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Task
}

func (m *memTasks) Create(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[t.ID] = *t
	return nil
}

func (m *memTasks) CreateBatch(ctx context.Context, tasks []*domain.Task) error {
	for _, t := range tasks {
		_ = m.Create(ctx, t)
	}
	return nil
}

func (m *memTasks) Update(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[t.ID]; !ok {
		return errs.ErrTaskNotFound
	}
	m.byID[t.ID] = *t
	return nil
}

func (m *memTasks) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return errs.ErrTaskNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memTasks) FindByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, errs.ErrTaskNotFound
	}
	return &t, nil
}

func (m *memTasks) FindByCreator(_ context.Context, creatorID uuid.UUID) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, t := range m.byID {
		if t.CreatorID == creatorID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memTasks) DeleteByCreator(_ context.Context, creatorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.byID {
		if t.CreatorID == creatorID {
			delete(m.byID, id)
		}
	}
	return nil
}

type memDeliveries struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Delivery
}

func (m *memDeliveries) CreateBatch(_ context.Context, list []*domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range list {
		m.byID[d.ID] = *d
	}
	return nil
}

func (m *memDeliveries) Update(_ context.Context, d *domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[d.ID]; !ok {
		return errs.ErrDeliveryNotFound
	}
	m.byID[d.ID] = *d
	return nil
}

func (m *memDeliveries) FindByID(_ context.Context, id uuid.UUID) (*domain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, errs.ErrDeliveryNotFound
	}
	return &d, nil
}

func (m *memDeliveries) FindByFulfiller(_ context.Context, fulfillerID uuid.UUID) ([]*domain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Delivery
	for _, d := range m.byID {
		if d.FulfillerID == fulfillerID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memDeliveries) DeleteByFulfiller(_ context.Context, fulfillerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.byID {
		if d.FulfillerID == fulfillerID {
			delete(m.byID, id)
		}
	}
	return nil
}

type captureMailer struct {
	mu   sync.Mutex
	last string
}

func (m *captureMailer) Send(_, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = body
	return nil
}

var codePattern = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func (m *captureMailer) code(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	match := codePattern.FindStringSubmatch(m.last)
	require.Len(t, match, 2, "no code in %q", m.last)
	return match[1]
}

// ==============================================================================
// FIXTURE
// ==============================================================================

type fixture struct {
	router *mux.Router
	mail   *captureMailer
	hub    *notification.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	cat := catalog.MustLoad()
	gen := mockdata.New(cat, mockdata.WithSeed(7))
	store := kvstore.NewMemory()
	users := &memUsers{byID: map[uuid.UUID]domain.User{}}
	mail := &captureMailer{}

	files := fileupload.NewService(fileupload.NewMemoryProvider(), log, fileupload.DefaultConfig())
	hub := notification.NewHub(log)
	notes := notification.NewService(store, cat, hub, log)
	sched := scheduler.NewScheduler(log)
	kycSvc := kyc.NewService(store, files, notes, sched, config.KYCConfig{VerificationDelay: 20 * time.Millisecond}, log)
	creatorSvc := creatorkyc.NewService(store, files, 0, log)
	authSvc := auth.NewService(users, mail,
		config.JWTConfig{Secret: testSecret, Expiration: time.Hour},
		config.VerificationConfig{Issuer: "taskhub", CodePeriod: 10 * time.Minute}, log)
	taskSvc := task.NewService(&memTasks{byID: map[uuid.UUID]domain.Task{}}, users, gen, 6, log)
	draftSvc := taskdraft.NewService(store, cat, taskSvc, log)
	deliverySvc := delivery.NewService(&memDeliveries{byID: map[uuid.UUID]domain.Delivery{}}, users, notes, gen, 10, log)

	hs := &Handlers{
		Health:       NewHealthHandler(nil, nil),
		Auth:         NewAuthHandler(authSvc, log),
		KYC:          NewKYCHandler(kycSvc, log),
		CreatorKYC:   NewCreatorKYCHandler(creatorSvc, log),
		Tasks:        NewTaskHandler(taskSvc, log),
		TaskDraft:    NewTaskDraftHandler(draftSvc, log),
		Deliveries:   NewDeliveryHandler(deliverySvc, log),
		Notification: NewNotificationHandler(notes, hub, log),
	}
	r := mux.NewRouter()
	hs.Register(r, middleware.NewAuthMiddleware(testSecret).Authenticate, nil)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		_ = sched.Shutdown(ctx)
	})
	return &fixture{router: r, mail: mail, hub: hub}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// register creates a user and returns their token.
func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"firstName": "Ada",
		"lastName":  "Obi",
		"email":     email,
		"password":  "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp auth.TokenResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func (f *fixture) user(t *testing.T) string {
	return f.register(t, strings.ToLower(uuid.NewString()[:8])+"@example.com")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	decode(t, w, &body)
	return body
}

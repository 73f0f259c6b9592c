package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"shaggydog/internal/domain"
	"shaggydog/internal/middleware"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*domain.User{}}
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return domain.ErrDuplicateUser
		}
	}
	copied := *user
	copied.CreatedAt = time.Now()
	m.users[user.ID] = &copied
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	seq  int
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*domain.Job{}}
}

func (m *memJobs) Create(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	copied := *job
	copied.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	copied.UpdatedAt = copied.CreatedAt
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobs) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memJobs) ListForUser(_ context.Context, userID string) ([]domain.JobListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []*domain.Job
	for _, job := range m.jobs {
		if job.UserID == userID {
			owned = append(owned, job)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.Before(owned[j].CreatedAt) })
	listings := make([]domain.JobListing, 0, len(owned))
	for i := len(owned) - 1; i >= 0; i-- {
		job := owned[i]
		listings = append(listings, domain.JobListing{
			ID:           job.ID,
			BatchID:      job.BatchID,
			Pipeline:     job.Pipeline,
			Breed:        job.Breed,
			Status:       job.Status,
			ErrorMessage: job.ErrorMessage,
			CreatedAt:    job.CreatedAt,
			DisplayIndex: i + 1,
			HasOriginal:  len(job.Original) > 0,
			HasStage1:    len(job.Stage1) > 0,
			HasStage2:    len(job.Stage2) > 0,
			HasFinal:     len(job.Final) > 0,
		})
	}
	return listings, nil
}

func (m *memJobs) SlotData(_ context.Context, jobID, userID string, slot domain.Slot) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	data := job.SlotBytes(slot)
	if len(data) == 0 {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *memJobs) mutate(jobID string, fn func(*domain.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return domain.ErrJobFinished
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return nil
}

func (m *memJobs) SetStatus(_ context.Context, jobID string, status domain.JobStatus) error {
	return m.mutate(jobID, func(j *domain.Job) { j.Status = status })
}

func (m *memJobs) SetBreed(_ context.Context, jobID, b string) error {
	return m.mutate(jobID, func(j *domain.Job) { j.Breed = b })
}

func (m *memJobs) SetStageResult(_ context.Context, jobID string, slot domain.Slot, data []byte, next domain.JobStatus) error {
	return m.mutate(jobID, func(j *domain.Job) {
		switch slot {
		case domain.SlotStage1:
			j.Stage1 = data
		case domain.SlotStage2:
			j.Stage2 = data
		case domain.SlotFinal:
			j.Final = data
		}
		j.Status = next
	})
}

func (m *memJobs) SetError(_ context.Context, jobID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = domain.StatusError
	job.ErrorMessage = message
	return nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	jobIDs  []string
	failure error
}

func (d *recordingDispatcher) Dispatch(jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failure != nil {
		return d.failure
	}
	d.jobIDs = append(d.jobIDs, jobID)
	return nil
}

func newTestApp() (*App, *memUsers, *memJobs, *recordingDispatcher) {
	users := newMemUsers()
	jobs := newMemJobs()
	dispatcher := &recordingDispatcher{}
	app := &App{
		Users:          users,
		Jobs:           jobs,
		Dispatcher:     dispatcher,
		Logger:         zerolog.Nop(),
		JWTSecret:      "test-secret",
		MaxUploadBytes: 16 << 20,
	}
	return app, users, jobs, dispatcher
}

func testPNG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename, pipeline string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if pipeline != "" {
		if err := writer.WriteField("pipeline", pipeline); err != nil {
			t.Fatalf("write pipeline field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// newStatusRouter mounts the parameterized routes so chi URL params resolve
// in handler tests.
func newStatusRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Get("/jobs/{job_id}", app.JobStatus)
	r.Get("/image/{job_id}/{slot}", app.ImageSlot)
	return r
}

func authedRequest(t *testing.T, method, target, userID string, body *bytes.Buffer, contentType string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

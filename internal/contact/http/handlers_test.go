package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftcode/landing-backend/internal/contact/domain"
	"github.com/craftcode/landing-backend/internal/contact/service"
)

type fakeInserter struct {
	mu      sync.Mutex
	records []domain.SubmissionRecord
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeInserter) Insert(_ context.Context, rec domain.SubmissionRecord) (*domain.StoredSubmission, error) {
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.StoredSubmission{ID: "1", SubmissionRecord: rec}, nil
}

func (f *fakeInserter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type testServer struct {
	router   *gin.Engine
	registry *service.Registry
	inserter *fakeInserter
}

func newTestServer(t *testing.T, ins *fakeInserter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := service.NewRegistry(ins, nil, service.WithControllerResetDelay(time.Hour))
	t.Cleanup(reg.Close)

	h := New(reg, "craftcode83@gmail.com")
	h.pollInterval = 5 * time.Millisecond

	r := gin.New()
	h.Register(r.Group("/api/v1/contact"))
	return &testServer{router: r, registry: reg, inserter: ins}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp struct {
		Session sessionResponse `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Session
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(http.MethodPost, "/api/v1/contact/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeSession(t, w).ID
}

func (s *testServer) fill(t *testing.T, id string, values map[string]string) {
	t.Helper()
	for field, v := range values {
		w := s.do(http.MethodPut, "/api/v1/contact/sessions/"+id+"/fields/"+field, gin.H{"value": v})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

var validForm = map[string]string{
	"name":    "Ana",
	"email":   "ana@x.com",
	"phone":   "11999999999",
	"project": "loja virtual",
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, &fakeInserter{})

	w := s.do(http.MethodPost, "/api/v1/contact/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeSession(t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.PhaseIdle, created.State.Phase)
	assert.True(t, created.CanSubmit)
	assert.Equal(t, int64(time.Hour/time.Millisecond), created.ResetDelayMs)

	w = s.do(http.MethodGet, "/api/v1/contact/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decodeSession(t, w).ID)

	w = s.do(http.MethodDelete, "/api/v1/contact/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/v1/contact/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ErrSessionNotFound.Error(), decodeError(t, w)["error"])

	w = s.do(http.MethodDelete, "/api/v1/contact/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateField(t *testing.T) {
	s := newTestServer(t, &fakeInserter{})
	id := s.createSession(t)

	w := s.do(http.MethodPut, "/api/v1/contact/sessions/"+id+"/fields/project", gin.H{"value": "loja virtual"})
	require.Equal(t, http.StatusOK, w.Code)
	sess := decodeSession(t, w)
	assert.Equal(t, domain.SubmissionDraft{Project: "loja virtual"}, sess.Draft)
	assert.Equal(t, uint64(1), sess.Version)

	w = s.do(http.MethodPut, "/api/v1/contact/sessions/"+id+"/fields/project", gin.H{"value": ""})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.SubmissionDraft{}, decodeSession(t, w).Draft)

	w = s.do(http.MethodPut, "/api/v1/contact/sessions/"+id+"/fields/company", gin.H{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/contact/sessions/"+id+"/fields/name", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/contact/sessions/"+id+"/fields/name", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/v1/contact/sessions/missing/fields/name", gin.H{"value": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmit_Success(t *testing.T) {
	ins := &fakeInserter{}
	s := newTestServer(t, ins)
	id := s.createSession(t)
	s.fill(t, id, validForm)

	w := s.do(http.MethodPost, "/api/v1/contact/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sess := decodeSession(t, w)
	assert.Equal(t, domain.Submitted(), sess.State)
	assert.False(t, sess.CanSubmit)

	require.Equal(t, 1, ins.count())
	assert.Equal(t, domain.SubmissionRecord{
		Name:               "Ana",
		Email:              "ana@x.com",
		Phone:              "11999999999",
		ProjectDescription: "loja virtual",
	}, ins.records[0])

	w = s.do(http.MethodPost, "/api/v1/contact/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, ins.count())
}

func TestSubmit_ValidationFailure(t *testing.T) {
	ins := &fakeInserter{}
	s := newTestServer(t, ins)
	id := s.createSession(t)
	s.fill(t, id, map[string]string{"name": "Ana", "email": "not-an-email"})

	w := s.do(http.MethodPost, "/api/v1/contact/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]string{
		"email":   "must be a valid email address",
		"phone":   "is required",
		"project": "is required",
	}, resp.Fields)
	assert.Equal(t, 0, ins.count())

	w = s.do(http.MethodGet, "/api/v1/contact/sessions/"+id, nil)
	assert.Equal(t, domain.PhaseIdle, decodeSession(t, w).State.Phase)
}

func TestSubmit_RemoteFailureKeepsDraft(t *testing.T) {
	ins := &fakeInserter{err: domain.NewRemoteFailure("new row violates row-level security policy", nil)}
	s := newTestServer(t, ins)
	id := s.createSession(t)
	s.fill(t, id, validForm)

	w := s.do(http.MethodPost, "/api/v1/contact/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sess := decodeSession(t, w)
	assert.Equal(t, domain.Failed("new row violates row-level security policy"), sess.State)
	assert.Equal(t, "Ana", sess.Draft.Name)
	assert.True(t, sess.CanSubmit)
}

func TestSubmit_ConflictWhileInFlight(t *testing.T) {
	ins := &fakeInserter{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := newTestServer(t, ins)
	id := s.createSession(t)
	s.fill(t, id, validForm)

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- s.do(http.MethodPost, "/api/v1/contact/sessions/"+id+"/submit", nil)
	}()
	<-ins.entered

	w := s.do(http.MethodPost, "/api/v1/contact/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/v1/contact/sessions/"+id, nil)
	assert.Equal(t, domain.PhaseSubmitting, decodeSession(t, w).State.Phase)

	// Clearing a field mid-flight still reports the conflict, not a validation error.
	s.fill(t, id, map[string]string{"email": ""})
	w = s.do(http.MethodPost, "/api/v1/contact/sessions/"+id+"/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(ins.block)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, ins.count())
}

func TestSubmitOnce(t *testing.T) {
	body := gin.H{"name": "Ana", "email": "ana@x.com", "phone": "11999999999", "project": "loja virtual"}

	t.Run("created", func(t *testing.T) {
		ins := &fakeInserter{}
		s := newTestServer(t, ins)

		w := s.do(http.MethodPost, "/api/v1/contact", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, 1, ins.count())
		assert.Equal(t, "loja virtual", ins.records[0].ProjectDescription)
		assert.Equal(t, 0, s.registry.Len())
	})

	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, &fakeInserter{err: domain.NewNotConfigured()})

		w := s.do(http.MethodPost, "/api/v1/contact", body)
		require.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, domain.NotConfiguredMessage, decodeError(t, w)["error"])
	})

	t.Run("transport failure", func(t *testing.T) {
		s := newTestServer(t, &fakeInserter{err: domain.NewRemoteFailure("", context.DeadlineExceeded)})

		w := s.do(http.MethodPost, "/api/v1/contact", body)
		require.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, service.FallbackErrorMessage, decodeError(t, w)["error"])
	})

	t.Run("validation", func(t *testing.T) {
		ins := &fakeInserter{}
		s := newTestServer(t, ins)

		w := s.do(http.MethodPost, "/api/v1/contact", gin.H{"name": "Ana", "email": "ana"})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, 0, ins.count())
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(t, &fakeInserter{})

		w := s.do(http.MethodPost, "/api/v1/contact", "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChannelAndStats(t *testing.T) {
	s := newTestServer(t, &fakeInserter{})

	w := s.do(http.MethodGet, "/api/v1/contact/channel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"craftcode83@gmail.com","mailto":"mailto:craftcode83@gmail.com"}`, w.Body.String())

	id := s.createSession(t)
	s.fill(t, id, validForm)
	s.do(http.MethodPost, "/api/v1/contact/sessions/"+id+"/submit", nil)

	w = s.do(http.MethodGet, "/api/v1/contact/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["submits"])
	assert.EqualValues(t, 1, stats["successes"])
	assert.EqualValues(t, 1, stats["active_sessions"])
	assert.EqualValues(t, 0, stats["failure_rate"])
}

func TestStreamSessionEvents(t *testing.T) {
	s := newTestServer(t, &fakeInserter{})
	id := s.createSession(t)

	w := s.do(http.MethodGet, "/api/v1/contact/sessions/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/contact/sessions/"+id+"/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.router.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	sess, err := s.registry.Get(id)
	require.NoError(t, err)
	require.NoError(t, sess.Controller.UpdateField(domain.FieldName, "Ana"))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.registry.Remove(id))

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("stream did not end after the session was removed")
	}

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "event: initial\n"), body)
	assert.Contains(t, body, "event: update\n")
	assert.Contains(t, body, `"name":"Ana"`)
	assert.Contains(t, body, "event: closed\n")
}

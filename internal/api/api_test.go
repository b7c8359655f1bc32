package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/events"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/inmem"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router    *gin.Engine
	tokens    *TokenIssuer
	hub       *events.Hub
	professor *model.User
	admin     *model.User
	s1, s2    *model.User
}

func newTestServer(t *testing.T, perMin int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

	db := inmem.Open()
	userRepo := inmem.NewUserRepository(db)
	sessionRepo := inmem.NewSessionRepository(db)

	ts := &testServer{
		professor: &model.User{FirstName: "Paula", Role: model.RoleProfessor},
		admin:     &model.User{FirstName: "Ada", Role: model.RoleAdmin},
		s1:        &model.User{FirstName: "Sofía", Role: model.RoleStudent},
		s2:        &model.User{FirstName: "Santi", Role: model.RoleStudent},
	}
	for _, u := range []*model.User{ts.professor, ts.admin, ts.s1, ts.s2} {
		require.NoError(t, userRepo.Create(ctx, u))
	}

	catalog, err := service.NewStudioCatalog(nil)
	require.NoError(t, err)

	logger := zap.NewNop()
	ts.hub = events.NewHub(logger)
	sessions := service.NewSessionService(sessionRepo, userRepo, catalog, ts.hub, time.UTC, logger)
	sessions.SetClock(func() time.Time { return now })
	users := service.NewUserService(userRepo, logger)

	ts.tokens, err = NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	h := NewHandler(sessions, users, ts.hub, ts.tokens, logger)
	h.now = func() time.Time { return now }

	ts.router, err = NewRouter(h, RouterOptions{RequestsPerMin: perMin})
	require.NoError(t, err)
	return ts
}

func (ts *testServer) do(t *testing.T, user *model.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := ts.tokens.Issue(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestAPI_Auth(t *testing.T) {
	ts := newTestServer(t, 1000)

	assert.Equal(t, http.StatusOK, ts.do(t, nil, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, nil, http.MethodGet, "/api/studios", nil).Code)

	ghost := &model.User{ID: 999, Role: model.RoleAdmin}
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, ghost, http.MethodGet, "/api/studios", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/studios", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, ts.s1, http.MethodGet, "/api/studios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	studios := decode[map[string][]model.Studio](t, w)
	assert.Len(t, studios["studios"], len(model.DefaultStudios))

	assert.Equal(t, http.StatusForbidden, ts.do(t, ts.s1, http.MethodGet, "/api/students", nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, ts.professor, http.MethodGet, "/api/me/sessions", nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, ts.professor, http.MethodPost, "/api/admin/sessions/clear", nil).Code)
}

func TestAPI_SessionWorkflow(t *testing.T) {
	ts := newTestServer(t, 1000)

	w := ts.do(t, ts.professor, http.MethodGet, "/api/students?search=sof", nil)
	require.Equal(t, http.StatusOK, w.Code)
	roster := decode[map[string][]model.User](t, w)
	require.Len(t, roster["students"], 1)

	create := createSessionRequest{
		StudioID:   "barra",
		Date:       "2025-03-10",
		Time:       "14:00",
		StudentIDs: []int64{ts.s1.ID, ts.s2.ID},
	}
	w = ts.do(t, ts.s1, http.MethodPost, "/api/sessions", create)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, ts.professor, http.MethodPost, "/api/sessions", create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[model.StudioSession](t, w)
	assert.Equal(t, model.SessionStatusActive, session.Status)
	assert.Equal(t, model.ResponsePending, session.Students[ts.s1.ID].Status)

	w = ts.do(t, ts.professor, http.MethodPost, "/api/sessions", create)
	assert.Equal(t, http.StatusConflict, w.Code)

	bad := create
	bad.Time = "12:00"
	w = ts.do(t, ts.professor, http.MethodPost, "/api/sessions", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Details, "slottime")

	path := "/api/sessions/" + session.ID
	w = ts.do(t, ts.s1, http.MethodPost, path+"/respond", respondRequest{Status: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, ts.s1, http.MethodPost, path+"/respond", respondRequest{Status: "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var answered struct {
		Counts model.ResponseCounts `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answered))
	assert.Equal(t, model.ResponseCounts{Confirmed: 1, Pending: 1}, answered.Counts)

	w = ts.do(t, ts.s1, http.MethodPost, path+"/respond", respondRequest{Status: "declined"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, ts.professor, http.MethodPost, path+"/respond", respondRequest{Status: "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, ts.s2, http.MethodGet, "/api/me/pending-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[map[string]int](t, w)["pending"])

	w = ts.do(t, ts.professor, http.MethodGet, "/api/professors/me/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[map[string][]service.ProfessorSessionView](t, w)
	require.Len(t, views["sessions"], 1)
	assert.Equal(t, model.ResponseCounts{Confirmed: 1, Pending: 1}, views["sessions"][0].Counts)

	w = ts.do(t, ts.s2, http.MethodPost, path+"/cancel", cancelSessionRequest{Reason: "no"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, ts.professor, http.MethodPost, path+"/cancel", cancelSessionRequest{Reason: "Studio maintenance"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Studio maintenance", decode[model.StudioSession](t, w).CancelReason)

	w = ts.do(t, ts.s2, http.MethodGet, "/api/me/invitations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cards := decode[map[string][]service.Notification](t, w)
	require.Len(t, cards["invitations"], 1)
	assert.True(t, cards["invitations"][0].Canceled)
	assert.False(t, cards["invitations"][0].CanRespond)

	w = ts.do(t, ts.s2, http.MethodGet, "/api/studios/barra/availability?week=2025-03-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	grid := decode[service.WeekGrid](t, w)
	for _, cell := range grid.Days[0].Cells {
		assert.Equal(t, service.CellAvailable, cell.State, cell.Time)
	}

	// existence is only revealed to admins
	assert.Equal(t, http.StatusForbidden, ts.do(t, ts.s1, http.MethodGet, "/api/sessions/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, ts.admin, http.MethodGet, "/api/sessions/missing", nil).Code)
}

func TestAPI_Availability(t *testing.T) {
	ts := newTestServer(t, 1000)

	w := ts.do(t, ts.professor, http.MethodPost, "/api/sessions", createSessionRequest{
		StudioID: "sala-a", Date: "2025-03-06", Time: "09:00", StudentIDs: []int64{ts.s1.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, ts.s1, http.MethodGet, "/api/studios/sala-a/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	grid := decode[service.WeekGrid](t, w)
	require.Len(t, grid.Days, 7)
	assert.Equal(t, "2025-03-03", grid.Days[0].Date)
	assert.Equal(t, service.CellPast, grid.Days[0].Cells[0].State)
	assert.Equal(t, service.CellBooked, grid.Days[3].Cells[1].State)

	assert.Equal(t, http.StatusNotFound, ts.do(t, ts.s1, http.MethodGet, "/api/studios/nope/availability", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, ts.s1, http.MethodGet, "/api/studios/barra/availability?week=soon", nil).Code)

	w = ts.do(t, ts.s1, http.MethodGet, "/api/studios/barra/availability.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestAPI_Admin(t *testing.T) {
	ts := newTestServer(t, 1000)

	w := ts.do(t, ts.professor, http.MethodPost, "/api/sessions", createSessionRequest{
		StudioID: "barra", Date: "2025-03-07", Time: "10:00", StudentIDs: []int64{ts.s1.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, ts.admin, http.MethodPost, "/api/admin/sessions/backfill-created-at?force=yes-please", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, ts.admin, http.MethodPost, "/api/admin/sessions/backfill-created-at?force=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[service.MaintenanceSummary](t, w).Affected)

	ch, cancel := ts.hub.Subscribe(4)
	defer cancel()

	w = ts.do(t, ts.admin, http.MethodPost, "/api/admin/sessions/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[service.MaintenanceSummary](t, w).Affected)

	select {
	case e := <-ch:
		assert.Equal(t, events.KindSessionsCleared, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("no cleared event")
	}
}

func TestAPI_RateLimit(t *testing.T) {
	ts := newTestServer(t, 2)

	assert.Equal(t, http.StatusOK, ts.do(t, nil, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, nil, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, nil, http.MethodGet, "/health", nil).Code)
}

func TestTokenIssuer(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)

	issuer, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	token, err := issuer.Issue(&model.User{ID: 42, Role: model.RoleStudent})
	require.NoError(t, err)

	id, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	other, err := NewTokenIssuer("another", time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.Error(t, err)

	expired, err := NewTokenIssuer("secret", time.Nanosecond)
	require.NoError(t, err)
	old, err := expired.Issue(&model.User{ID: 1})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = issuer.Parse(old)
	assert.Error(t, err)
}

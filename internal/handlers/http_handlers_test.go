package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/grievance-engine/internal/assignment"
	"github.com/civicgrid/grievance-engine/internal/clock"
	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/database"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
	"github.com/civicgrid/grievance-engine/internal/notification"
	"github.com/civicgrid/grievance-engine/internal/review"
)

func testRouter(t *testing.T) (*mux.Router, *clock.Fake) {
	t.Helper()

	store := database.NewMemoryStore()
	store.SeedDepartments(
		&database.Department{ID: "electrical", Name: "Electrical", Categories: []string{"Streetlight"}},
	)
	store.SeedStaff(
		&database.Staff{ID: "off-1", Role: database.RoleOfficer, Department: "electrical", Ward: "ward-12", Rating: 4.2, Active: true},
		&database.Staff{ID: "sup-1", Role: database.RoleSupervisor, Department: "electrical", Ward: "ward-12", Rating: 4.5, Active: true},
	)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roster := assignment.NewRosterService(store, store, time.Minute, 5*time.Minute, logger)
	clk := clock.NewFake(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	slaCfg := config.SLAConfig{
		CategoryHours: map[string]int{"Streetlight": 48},
		DefaultHours:  120,
		ReviewWindow:  24 * time.Hour,
	}
	engine := lifecycle.NewEngine(store, roster, slaCfg, clk, logger)
	gate := review.NewGate(store, clk, logger)
	notificationMgr := notification.NewManager(config.NotificationsConfig{}, logger)

	cfg := config.Config{}
	handler := NewHTTPHandler(&cfg, logger, engine, gate, nil, notificationMgr)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router, clk
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}, actor *lifecycle.Actor) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-Actor-ID", actor.ID)
		req.Header.Set("X-Actor-Role", actor.Role)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func submitPayload() map[string]interface{} {
	return map[string]interface{}{
		"category":    "Streetlight",
		"severity":    "Medium",
		"description": "Dark stretch on the ring road",
		"ward":        "ward-12",
		"citizen_ref": "citizen-1",
	}
}

func TestSubmitComplaintEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doJSON(t, router, http.MethodPost, "/complaints", submitPayload(), nil)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var complaint database.Complaint
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &complaint))
	assert.Equal(t, "GG-00001", complaint.ID)
	assert.Equal(t, database.StatusAssigned, complaint.Status)
	require.NotNil(t, complaint.SLADeadline)
}

func TestSubmitComplaintValidation(t *testing.T) {
	router, _ := testRouter(t)

	payload := submitPayload()
	payload["severity"] = "catastrophic"
	recorder := doJSON(t, router, http.MethodPost, "/complaints", payload, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	delete(payload, "severity")
	payload["category"] = ""
	recorder = doJSON(t, router, http.MethodPost, "/complaints", payload, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetComplaintAndTimeline(t *testing.T) {
	router, _ := testRouter(t)
	doJSON(t, router, http.MethodPost, "/complaints", submitPayload(), nil)

	recorder := doJSON(t, router, http.MethodGet, "/complaints/GG-00001", nil, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, router, http.MethodGet, "/complaints/GG-00001/timeline", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var timeline struct {
		Events []database.TimelineEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &timeline))
	require.Len(t, timeline.Events, 1)
	assert.Equal(t, "submitted", timeline.Events[0].Action)

	recorder = doJSON(t, router, http.MethodGet, "/complaints/GG-99999", nil, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestStatusUpdateRequiresActorHeaders(t *testing.T) {
	router, _ := testRouter(t)
	doJSON(t, router, http.MethodPost, "/complaints", submitPayload(), nil)

	body := map[string]interface{}{"status": "in_progress"}

	recorder := doJSON(t, router, http.MethodPost, "/complaints/GG-00001/status", body, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code, "missing actor headers")

	officer := &lifecycle.Actor{ID: "off-1", Role: database.RoleOfficer}
	recorder = doJSON(t, router, http.MethodPost, "/complaints/GG-00001/status", body, officer)
	assert.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
}

func TestStatusUpdateErrorMapping(t *testing.T) {
	router, _ := testRouter(t)
	doJSON(t, router, http.MethodPost, "/complaints", submitPayload(), nil)

	// Wrong actor: 403.
	stranger := &lifecycle.Actor{ID: "off-99", Role: database.RoleOfficer}
	recorder := doJSON(t, router, http.MethodPost, "/complaints/GG-00001/status",
		map[string]interface{}{"status": "in_progress"}, stranger)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Illegal transition: 409.
	officer := &lifecycle.Actor{ID: "off-1", Role: database.RoleOfficer}
	recorder = doJSON(t, router, http.MethodPost, "/complaints/GG-00001/status",
		map[string]interface{}{"status": "closed"}, officer)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestEscalateAndReviewFlow(t *testing.T) {
	router, _ := testRouter(t)
	doJSON(t, router, http.MethodPost, "/complaints", submitPayload(), nil)

	officer := &lifecycle.Actor{ID: "off-1", Role: database.RoleOfficer}
	recorder := doJSON(t, router, http.MethodPost, "/complaints/GG-00001/escalate", nil, officer)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var escalated database.Complaint
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &escalated))
	assert.Equal(t, database.StatusAwaitingSupervisor, escalated.Status)

	// Rejecting without remarks is a 400.
	supervisor := &lifecycle.Actor{ID: "sup-1", Role: database.RoleSupervisor}
	recorder = doJSON(t, router, http.MethodPost, "/complaints/GG-00001/review",
		map[string]interface{}{"decision": "REJECT"}, supervisor)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doJSON(t, router, http.MethodPost, "/complaints/GG-00001/review",
		map[string]interface{}{"decision": "REJECT", "remarks": "redo the repair"}, supervisor)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var decided database.Complaint
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decided))
	assert.Equal(t, database.StatusInProgress, decided.Status)
}

func TestListComplaintsWithFilter(t *testing.T) {
	router, _ := testRouter(t)
	doJSON(t, router, http.MethodPost, "/complaints", submitPayload(), nil)
	doJSON(t, router, http.MethodPost, "/complaints", submitPayload(), nil)

	recorder := doJSON(t, router, http.MethodGet, "/complaints?status=assigned&limit=10", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Complaints []database.Complaint `json:"complaints"`
		Count      int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Count)

	recorder = doJSON(t, router, http.MethodGet, "/complaints?status=resolved", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, 0, response.Count)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scentpanel/internal/domain"
	"scentpanel/internal/hardware"
	"scentpanel/internal/metrics"
	"scentpanel/internal/repository"
	"scentpanel/internal/service"
	"scentpanel/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer wires the whole API over memory storage and a fast
// simulator, the way cmd/scentpanel does for production.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := zap.NewNop()
	kv := store.NewMemoryKV()
	m := metrics.New()
	analysisStore := repository.NewKVAnalysisStore(kv, log)
	ratings := repository.NewKVRatingsRepo(kv, log)
	reference := repository.NewMemoryReferenceRepo()
	sim := hardware.NewSimulatorWithDelays(10*time.Millisecond, 10*time.Millisecond, log)

	analysisSvc := service.NewAnalysisService(analysisStore, ratings, reference, m, log)
	engine := service.NewProgressEngine(analysisStore, log)
	orchestrator := service.NewWorkflowOrchestrator(
		sim, engine, analysisStore, ratings,
		5*time.Millisecond, 20, m, log,
	)

	router := NewRouter(log)
	router.RegisterAnalysisRoutes(NewAnalysisHandler(analysisSvc, log))
	router.RegisterTestingRoutes(NewTestingHandler(engine, orchestrator, log))
	router.RegisterRatingsRoutes(NewRatingsHandler(ratings, log))
	router.RegisterControllerRoutes(NewControllerHandler(sim, log))
	router.RegisterReferenceRoutes(NewReferenceHandler(reference, log))
	router.RegisterHealthRoute()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

func createActiveAnalysis(t *testing.T, srv *httptest.Server, rooms int) string {
	t.Helper()

	assignments := make([]map[string]any, 0, rooms)
	for i := 1; i <= rooms; i++ {
		assignments = append(assignments, map[string]any{
			"room_number":  i,
			"sample_ref":   fmt.Sprintf("S-%03d", i),
			"sample_label": fmt.Sprintf("Monster %d", i),
		})
	}
	resp, envelope := postJSON(t, srv.URL+"/api/v1/analyses", map[string]any{
		"project_code":     "PRJ-001",
		"project_ref":      "ref-prj-001",
		"room_assignments": assignments,
		"panelist_ids":     []string{"p-01", "p-02"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	result := envelope["result"].(map[string]any)
	id := result["analysis_id"].(string)

	resp, _ = postJSON(t, srv.URL+"/api/v1/analyses/"+id+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return id
}

func TestAnalysisCreateValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, envelope := postJSON(t, srv.URL+"/api/v1/analyses", map[string]any{
		"project_code":     "PRJ-001",
		"room_assignments": []map[string]any{},
		"panelist_ids":     []string{},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "error", envelope["type"])
	require.Contains(t, envelope["message"], "room_assignments")
	require.Contains(t, envelope["message"], "panelist_ids")
}

func TestFullPanelistWorkflowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	id := createActiveAnalysis(t, srv, 2)

	// Start testing.
	resp, envelope := postJSON(t, srv.URL+"/api/v1/testing/start", map[string]any{
		"analysis_id": id,
		"tester_id":   "p-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := envelope["result"].(map[string]any)
	room := int(result["assigned_room_number"].(float64))
	require.Contains(t, []int{1, 2}, room)

	// Arrive: drives the rig through the full sequence.
	resp, envelope = postJSON(t, srv.URL+"/api/v1/testing/arrive", map[string]any{
		"analysis_id": id,
		"tester_id":   "p-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = envelope["result"].(map[string]any)
	require.Equal(t, room, int(result["room_number"].(float64)))

	// Submit a rating; next assignment comes back.
	resp, envelope = postJSON(t, srv.URL+"/api/v1/ratings", map[string]any{
		"analysis_id":  id,
		"tester_id":    "p-01",
		"room_number":  room,
		"intensity":    7.5,
		"pleasantness": 2.0,
		"descriptor":   "floral",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = envelope["result"].(map[string]any)
	require.False(t, result["is_complete"].(bool))
	next := int(result["next_room_number"].(float64))
	require.NotEqual(t, room, next)

	// Finish the second room.
	resp, _ = postJSON(t, srv.URL+"/api/v1/testing/arrive", map[string]any{
		"analysis_id": id,
		"tester_id":   "p-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope = postJSON(t, srv.URL+"/api/v1/ratings", map[string]any{
		"analysis_id":  id,
		"tester_id":    "p-01",
		"room_number":  next,
		"intensity":    3.1,
		"pleasantness": -0.5,
		"descriptor":   "chemical",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = envelope["result"].(map[string]any)
	require.True(t, result["is_complete"].(bool))

	// Both ratings are on record.
	resp, envelope = getJSON(t, srv.URL+"/api/v1/ratings/list?analysis_id="+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, envelope["result"].([]any), 2)
}

func TestStartTestingBeforeActivationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, envelope := postJSON(t, srv.URL+"/api/v1/analyses", map[string]any{
		"project_code": "PRJ-001",
		"room_assignments": []map[string]any{
			{"room_number": 1, "sample_ref": "S-001", "sample_label": "Monster"},
		},
		"panelist_ids": []string{"p-01"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := envelope["result"].(map[string]any)["analysis_id"].(string)

	resp, envelope = postJSON(t, srv.URL+"/api/v1/testing/start", map[string]any{
		"analysis_id": id,
		"tester_id":   "p-01",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "error", envelope["type"])
}

func TestControllerEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, envelope := getJSON(t, srv.URL+"/api/v1/controller/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := envelope["result"].(map[string]any)
	require.Equal(t, "standby", result["phase"])

	resp, envelope = getJSON(t, srv.URL+"/api/v1/controller/error")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no error", envelope["result"].(map[string]any)["error"])

	resp, envelope = postJSON(t, srv.URL+"/api/v1/controller/standby", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "standby", envelope["result"].(map[string]any)["phase"])
}

func TestControllerSequenceOverOpsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Selecting before pressurizing violates the sequence.
	resp, envelope := postJSON(t, srv.URL+"/api/v1/controller/select/3", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "error", envelope["type"])

	_, _ = postJSON(t, srv.URL+"/api/v1/controller/standby", nil)

	resp, envelope = postJSON(t, srv.URL+"/api/v1/controller/pressurize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "pressurizing", envelope["result"].(map[string]any)["phase"])

	deadline := time.Now().Add(time.Second)
	for {
		_, envelope = getJSON(t, srv.URL+"/api/v1/controller/status")
		if envelope["result"].(map[string]any)["phase"] == "ready" {
			break
		}
		require.True(t, time.Now().Before(deadline), "simulator never reached ready")
		time.Sleep(5 * time.Millisecond)
	}

	resp, envelope = postJSON(t, srv.URL+"/api/v1/controller/select/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(3), envelope["result"].(map[string]any)["selected_room"])

	resp, envelope = postJSON(t, srv.URL+"/api/v1/controller/select/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(0), envelope["result"].(map[string]any)["selected_room"])

	resp, _ = postJSON(t, srv.URL+"/api/v1/controller/select/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope = postJSON(t, srv.URL+"/api/v1/controller/open", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "valve_opened", envelope["result"].(map[string]any)["phase"])

	resp, _ = postJSON(t, srv.URL+"/api/v1/controller/select/banana", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReferenceEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, envelope := getJSON(t, srv.URL+"/api/v1/projects")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, envelope["result"].([]any))

	resp, envelope = getJSON(t, srv.URL+"/api/v1/projects/PRJ-001/samples")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, envelope["result"].([]any))

	resp, envelope = getJSON(t, srv.URL+"/api/v1/panelists")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, envelope["result"].([]any), domain.MaxPanelists)
}

func TestAnalysisNotFoundOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, envelope := getJSON(t, srv.URL+"/api/v1/analyses/missing")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "error", envelope["type"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/testing/start")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

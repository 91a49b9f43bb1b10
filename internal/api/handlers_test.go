package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/F0rt1s/routing/internal/engine"
	"github.com/F0rt1s/routing/internal/network"
	"github.com/F0rt1s/routing/internal/profile"
	"github.com/F0rt1s/routing/internal/resolver"
)

// buildTestHandlers wires a tiny 3-vertex network (mirroring the engine
// package's own fixtures) behind a real Engine, rather than mocking the
// engine surface: the interesting behavior here is JSON decoding and
// error-kind-to-status mapping, which only a real resolve/route round trip
// exercises honestly.
//
//	0 ---100--- 1 ---200--- 2
func buildTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	lat := map[uint64]float64{10: 1.30, 20: 1.31, 30: 1.32}
	lon := map[uint64]float64{10: 103.80, 20: 103.81, 30: 103.82}
	edges := []network.RawEdge{
		{FromID: 10, ToID: 20, Distance: 100, ProfileID: 0},
		{FromID: 20, ToID: 30, Distance: 200, ProfileID: 0},
	}
	net := network.Build(edges, lat, lon)
	res := resolver.New(net)

	prof := profile.NewVehicleProfile("car", 0)
	prof.Set(0, 3.6, profile.DirectionBoth, true)

	eng := engine.New(net, res, engine.Config{Profiles: map[string]profile.Profile{"car": prof}})
	return NewHandlers(eng, StatsResponse{NumVertices: net.NumVertices, NumEdges: net.NumEdges, Profiles: []string{"car"}})
}

func postJSON(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleRouteSuccess(t *testing.T) {
	h := buildTestHandlers(t)
	body := `{"profile":"car","start":{"lat":1.30,"lng":103.80},"end":{"lat":1.32,"lng":103.82}}`
	w := httptest.NewRecorder()

	h.HandleRoute(w, postJSON("POST", "/api/v1/route", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var resp RouteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalDistanceMeters != 300 {
		t.Errorf("TotalDistanceMeters = %f, want 300", resp.TotalDistanceMeters)
	}
}

func TestHandleRouteUnsupportedProfile(t *testing.T) {
	h := buildTestHandlers(t)
	body := `{"profile":"bike","start":{"lat":1.30,"lng":103.80},"end":{"lat":1.32,"lng":103.82}}`
	w := httptest.NewRecorder()

	h.HandleRoute(w, postJSON("POST", "/api/v1/route", body))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body: %s", w.Code, w.Body.String())
	}
}

func TestHandleRoutePointTooFar(t *testing.T) {
	h := buildTestHandlers(t)
	body := `{"profile":"car","start":{"lat":40.0,"lng":50.0},"end":{"lat":1.32,"lng":103.82}}`
	w := httptest.NewRecorder()

	h.HandleRoute(w, postJSON("POST", "/api/v1/route", body))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body: %s", w.Code, w.Body.String())
	}
}

func TestHandleRouteInvalidJSON(t *testing.T) {
	h := buildTestHandlers(t)
	w := httptest.NewRecorder()

	h.HandleRoute(w, postJSON("POST", "/api/v1/route", "not json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteMissingContentType(t *testing.T) {
	h := buildTestHandlers(t)
	body := `{"profile":"car","start":{"lat":1.30,"lng":103.80},"end":{"lat":1.32,"lng":103.82}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteOutOfBounds(t *testing.T) {
	h := buildTestHandlers(t)
	body := `{"profile":"car","start":{"lat":91.0,"lng":103.80},"end":{"lat":1.32,"lng":103.82}}`
	w := httptest.NewRecorder()

	h.HandleRoute(w, postJSON("POST", "/api/v1/route", body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleWeightMatchesRoute(t *testing.T) {
	h := buildTestHandlers(t)
	body := `{"profile":"car","start":{"lat":1.30,"lng":103.80},"end":{"lat":1.32,"lng":103.82}}`
	w := httptest.NewRecorder()

	h.HandleWeight(w, postJSON("POST", "/api/v1/weight", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var resp WeightResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.WeightMeters != 300 {
		t.Errorf("WeightMeters = %f, want 300", resp.WeightMeters)
	}
}

func TestHandleMatrixWeights(t *testing.T) {
	h := buildTestHandlers(t)
	body := `{"profile":"car","sources":[{"lat":1.30,"lng":103.80}],"targets":[{"lat":1.31,"lng":103.81},{"lat":1.32,"lng":103.82}]}`
	w := httptest.NewRecorder()

	h.HandleMatrixWeights(w, postJSON("POST", "/api/v1/matrix/weights", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var resp WeightMatrixResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Weights) != 1 || len(resp.Weights[0]) != 2 {
		t.Fatalf("Weights shape = %v, want 1x2", resp.Weights)
	}
	if resp.Weights[0][0] != 100 || resp.Weights[0][1] != 300 {
		t.Errorf("Weights = %v, want [100 300]", resp.Weights[0])
	}
}

func TestHandleConnectivityReachable(t *testing.T) {
	h := buildTestHandlers(t)
	body := `{"profile":"car","point":{"lat":1.30,"lng":103.80},"radius_m":1000}`
	w := httptest.NewRecorder()

	h.HandleConnectivity(w, postJSON("POST", "/api/v1/connectivity", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var resp ConnectivityResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Reached {
		t.Error("Reached = false, want true")
	}
}

func TestHandleHealth(t *testing.T) {
	h := buildTestHandlers(t)
	w := httptest.NewRecorder()

	h.HandleHealth(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	h := buildTestHandlers(t)
	w := httptest.NewRecorder()

	h.HandleStats(w, httptest.NewRequest("GET", "/api/v1/stats", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp StatsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.NumVertices != 3 {
		t.Errorf("NumVertices = %d, want 3", resp.NumVertices)
	}
}

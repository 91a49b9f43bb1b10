package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"github.com/F0rt1s/routing/internal/engine"
	"github.com/F0rt1s/routing/internal/resolver"
	"github.com/F0rt1s/routing/internal/routebuilder"
)

// Handlers holds the HTTP handlers and their engine dependency.
type Handlers struct {
	engine *engine.Engine
	stats  StatsResponse
}

// NewHandlers creates handlers bound to eng, reporting stats in every
// GET /api/v1/stats response.
func NewHandlers(eng *engine.Engine, stats StatsResponse) *Handlers {
	return &Handlers{engine: eng, stats: stats}
}

// HandleRoute handles POST /api/v1/route (spec §6 try_calculate).
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	source, target, ok := h.resolvePair(w, req.Profile, req.Start, req.End)
	if !ok {
		return
	}

	route, err := h.engine.TryCalculate(r.Context(), req.Profile, source, target)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRouteResponse(route))
}

// HandleWeight handles POST /api/v1/weight (spec §6 try_calculate_weight).
func (h *Handlers) HandleWeight(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	source, target, ok := h.resolvePair(w, req.Profile, req.Start, req.End)
	if !ok {
		return
	}

	weight, err := h.engine.TryCalculateWeight(r.Context(), req.Profile, source, target)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WeightResponse{WeightMeters: weight})
}

// HandleMatrixWeights handles POST /api/v1/matrix/weights (spec §6
// try_calculate_weight many-to-many overload).
func (h *Handlers) HandleMatrixWeights(w http.ResponseWriter, r *http.Request) {
	var req MatrixRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sources, targets, ok := h.resolveMatrixPoints(w, req)
	if !ok {
		return
	}

	wm, err := h.engine.TryCalculateWeightMatrix(r.Context(), req.Profile, sources, targets)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WeightMatrixResponse{
		Weights:        wm.Weights,
		InvalidSources: orEmpty(wm.InvalidSources),
		InvalidTargets: orEmpty(wm.InvalidTargets),
	})
}

// HandleMatrixRoutes handles POST /api/v1/matrix/routes (spec §6
// try_calculate many-to-many overload).
func (h *Handlers) HandleMatrixRoutes(w http.ResponseWriter, r *http.Request) {
	var req MatrixRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sources, targets, ok := h.resolveMatrixPoints(w, req)
	if !ok {
		return
	}

	rm, err := h.engine.TryCalculateRouteMatrix(r.Context(), req.Profile, sources, targets)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	routes := make([][]*RouteResponse, len(rm.Routes))
	for i, row := range rm.Routes {
		routes[i] = make([]*RouteResponse, len(row))
		for j, route := range row {
			if route != nil {
				routes[i][j] = toRouteResponse(route)
			}
		}
	}
	writeJSON(w, http.StatusOK, RouteMatrixResponse{
		Routes:         routes,
		InvalidSources: orEmpty(rm.InvalidSources),
		InvalidTargets: orEmpty(rm.InvalidTargets),
	})
}

// HandleConnectivity handles POST /api/v1/connectivity (spec §6
// try_check_connectivity).
func (h *Handlers) HandleConnectivity(w http.ResponseWriter, r *http.Request) {
	var req ConnectivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.Point); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "point")
		return
	}

	point, ok := h.resolveOne(w, req.Profile, req.Point)
	if !ok {
		return
	}

	reached, err := h.engine.TryCheckConnectivity(r.Context(), req.Profile, point, req.RadiusM)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectivityResponse{Reached: reached})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

func (h *Handlers) resolveOne(w http.ResponseWriter, profileName string, ll LatLngJSON) (resolver.RouterPoint, bool) {
	if !h.engine.SupportsAll([]string{profileName}) {
		writeError(w, http.StatusUnprocessableEntity, "profile_unsupported", "profile")
		return resolver.RouterPoint{}, false
	}
	rp, err := h.engine.TryResolve([]string{profileName}, ll.Lat, ll.Lng, 0)
	if err != nil {
		writeEngineError(w, err)
		return resolver.RouterPoint{}, false
	}
	return rp, true
}

func (h *Handlers) resolvePair(w http.ResponseWriter, profileName string, start, end LatLngJSON) (source, target resolver.RouterPoint, ok bool) {
	source, ok = h.resolveOne(w, profileName, start)
	if !ok {
		return
	}
	target, ok = h.resolveOne(w, profileName, end)
	return
}

func (h *Handlers) resolveMatrixPoints(w http.ResponseWriter, req MatrixRequest) (sources, targets []resolver.RouterPoint, ok bool) {
	for _, ll := range req.Sources {
		if err := validateCoord(ll); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", "sources")
			return nil, nil, false
		}
	}
	for _, ll := range req.Targets {
		if err := validateCoord(ll); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", "targets")
			return nil, nil, false
		}
	}

	sources = make([]resolver.RouterPoint, len(req.Sources))
	for i, ll := range req.Sources {
		rp, resolved := h.resolveOne(w, req.Profile, ll)
		if !resolved {
			return nil, nil, false
		}
		sources[i] = rp
	}
	targets = make([]resolver.RouterPoint, len(req.Targets))
	for i, ll := range req.Targets {
		rp, resolved := h.resolveOne(w, req.Profile, ll)
		if !resolved {
			return nil, nil, false
		}
		targets[i] = rp
	}
	return sources, targets, true
}

func toRouteResponse(route *routebuilder.Route) *RouteResponse {
	resp := &RouteResponse{
		TotalDistanceMeters:  route.TotalDistanceMeters,
		TotalDurationSeconds: route.TotalDurationSeconds,
	}
	for _, seg := range route.Segments {
		geom := make([]LatLngJSON, len(seg.Coordinates))
		for i, c := range seg.Coordinates {
			geom[i] = LatLngJSON{Lat: c.Lat, Lng: c.Lon}
		}
		resp.Segments = append(resp.Segments, SegmentJSON{
			DistanceMeters:  seg.DistanceMeters,
			DurationSeconds: seg.DurationSeconds,
			Geometry:        geom,
		})
	}
	return resp
}

// writeEngineError maps an engine.RouteError's Kind to the wire-level HTTP
// status/code pair; any other error (a programming error, per spec §7) is
// reported as an opaque internal_error.
func writeEngineError(w http.ResponseWriter, err error) {
	var re *engine.RouteError
	if errors.As(err, &re) {
		switch re.Kind {
		case engine.ProfileUnsupported:
			writeError(w, http.StatusUnprocessableEntity, "profile_unsupported", "")
		case engine.ResolveFailed:
			writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "")
		case engine.RouteNotFound:
			writeError(w, http.StatusNotFound, "no_route_found", "")
		case engine.Cancelled:
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func orEmpty(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

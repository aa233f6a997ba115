package routing

import (
	"encoding/json"
	"net/http"
	"strconv"

	"homeservices/internal/api"
)

type Handlers struct {
	Client *Client
	Cache  *Cache
}

// Directions handles GET /v1/routing/directions?startLat=..&startLng=..&endLat=..&endLng=..
func (h Handlers) Directions(w http.ResponseWriter, r *http.Request) {
	start, ok := coordParam(r, "startLat", "startLng")
	if !ok {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "startLat and startLng must be valid coordinates")
		return
	}
	end, ok := coordParam(r, "endLat", "endLng")
	if !ok {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "endLat and endLng must be valid coordinates")
		return
	}

	if cached := h.Cache.Get(r.Context(), start, end); cached != nil {
		writeRoute(w, cached, true)
		return
	}

	route, err := h.Client.Directions(r.Context(), start, end)
	if err != nil {
		api.WriteWorkflowError(w, err)
		return
	}
	h.Cache.Put(r.Context(), start, end, route)
	writeRoute(w, route, false)
}

func writeRoute(w http.ResponseWriter, route *Route, cached bool) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"route": route, "cached": cached})
}

func coordParam(r *http.Request, latKey, lngKey string) (Coordinate, bool) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	if err != nil || lat < -90 || lat > 90 {
		return Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get(lngKey), 64)
	if err != nil || lng < -180 || lng > 180 {
		return Coordinate{}, false
	}
	return Coordinate{Lat: lat, Lng: lng}, true
}

// Package routing proxies turn-by-turn directions from public OSRM mirrors.
// Mirrors are tried strictly in order with a per-attempt timeout; the first
// success wins and an exhausted list surfaces as a 503, never a hang.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"homeservices/internal/workflow"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Step struct {
	Instruction string  `json:"instruction"`
	Name        string  `json:"name,omitempty"`
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
}

type Route struct {
	Geometry string  `json:"geometry"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []Step  `json:"steps"`
	// Mirror records which upstream answered, for diagnostics.
	Mirror string `json:"mirror,omitempty"`
}

type Client struct {
	HTTPClient *http.Client
	Mirrors    []string
	// AttemptTimeout bounds each mirror try independently of the request context.
	AttemptTimeout time.Duration
	Log            *zap.Logger
}

func NewClient(mirrors []string, attemptTimeout time.Duration, log *zap.Logger) *Client {
	if attemptTimeout <= 0 {
		attemptTimeout = 8 * time.Second
	}
	return &Client{
		HTTPClient:     &http.Client{},
		Mirrors:        mirrors,
		AttemptTimeout: attemptTimeout,
		Log:            log,
	}
}

// osrmResponse is the subset of the upstream payload we care about.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Legs     []struct {
			Steps []struct {
				Name     string  `json:"name"`
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
				Maneuver struct {
					Type     string `json:"type"`
					Modifier string `json:"modifier"`
				} `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// Directions walks the mirror list until one returns a usable route.
func (c *Client) Directions(ctx context.Context, start, end Coordinate) (*Route, error) {
	if len(c.Mirrors) == 0 {
		return nil, workflow.E(workflow.KindConfiguration, "no routing mirrors configured")
	}

	var lastErr error
	for _, mirror := range c.Mirrors {
		route, err := c.try(ctx, mirror, start, end)
		if err == nil {
			route.Mirror = mirror
			return route, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.Log.Warn("routing mirror failed", zap.String("mirror", mirror), zap.Error(err))
		lastErr = err
	}
	return nil, workflow.Wrap(workflow.KindUpstreamUnavailable, "all routing mirrors unavailable", lastErr)
}

func (c *Client) try(ctx context.Context, mirror string, start, end Coordinate) (*Route, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.AttemptTimeout)
	defer cancel()

	// OSRM takes lng,lat pairs.
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&steps=true",
		mirror, start.Lng, start.Lat, end.Lng, end.Lat)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mirror status=%d", resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return nil, fmt.Errorf("decode mirror response: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("mirror returned code=%q with %d routes", parsed.Code, len(parsed.Routes))
	}

	r := parsed.Routes[0]
	route := &Route{
		Geometry: r.Geometry,
		Distance: r.Distance,
		Duration: r.Duration,
	}
	for _, leg := range r.Legs {
		for _, st := range leg.Steps {
			route.Steps = append(route.Steps, Step{
				Instruction: instruction(st.Maneuver.Type, st.Maneuver.Modifier, st.Name),
				Name:        st.Name,
				Distance:    st.Distance,
				Duration:    st.Duration,
			})
		}
	}
	return route, nil
}

func instruction(maneuver, modifier, name string) string {
	s := maneuver
	if modifier != "" {
		s += " " + modifier
	}
	if name != "" {
		s += " onto " + name
	}
	return s
}

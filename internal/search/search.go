// Package search resolves free text to geographic coordinates through a
// Nominatim compatible geocoder. At most one search is in flight at a time:
// starting a new one cancels the previous request.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/mercator"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrEmptyQuery = errors.New("search query is empty")
	ErrSuperseded = errors.New("search superseded by a newer one")
)

type Result struct {
	DisplayName string               `json:"display_name"`
	Coordinates mercator.Coordinates `json:"coordinates"`
	// Formatted is Coordinates as degree/minute/second text.
	Formatted string `json:"formatted"`
}

func newResult(name string, c mercator.Coordinates) Result {
	return Result{
		DisplayName: name,
		Coordinates: c,
		Formatted:   mercator.Format(c),
	}
}

type place struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

type Searcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    logger.Logger

	mu       sync.Mutex
	inflight uint64
	cancel   context.CancelCauseFunc
}

func NewSearcher(baseURL, userAgent string, timeout time.Duration, l logger.Logger) *Searcher {
	return &Searcher{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		logger:    l,
	}
}

// begin cancels the previous search and registers a new one.
func (s *Searcher) begin(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel(ErrSuperseded)
		s.cancel = nil
	}
	s.inflight++

	ctx, cancel := context.WithCancelCause(ctx)
	s.cancel = cancel
	return ctx, s.inflight
}

func (s *Searcher) end(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight == id && s.cancel != nil {
		s.cancel(nil)
		s.cancel = nil
	}
}

// Search looks query up. Text that already parses as coordinates resolves to
// itself without a request.
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	ctx, id := s.begin(ctx)
	defer s.end(id)

	if c, err := mercator.Parse(query); err == nil {
		metrics.SearchRequests.WithLabelValues("coordinates").Inc()
		return []Result{newResult(query, c)}, nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, "search.geocode",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("search.query", query)),
	)
	defer span.End()

	results, err := s.geocode(ctx, query)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrSuperseded) {
			metrics.SearchRequests.WithLabelValues("superseded").Inc()
			s.logger.Debug("search superseded", "query", query)
			return nil, ErrSuperseded
		}
		metrics.SearchRequests.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.SearchRequests.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int("search.results", len(results)))
	s.logger.Debug("search finished", "query", query, "results", len(results))
	return results, nil
}

func (s *Searcher) geocode(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}

	results := make([]Result, 0, len(places))
	for _, p := range places {
		lat, latErr := strconv.ParseFloat(p.Lat, 64)
		lon, lonErr := strconv.ParseFloat(p.Lon, 64)
		if err := errors.Join(latErr, lonErr); err != nil {
			s.logger.Warn("skipping geocoder result with bad coordinates", "name", p.DisplayName, "error", err)
			continue
		}
		results = append(results, newResult(p.DisplayName, mercator.Of(lat, lon)))
	}
	return results, nil
}

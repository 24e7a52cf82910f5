package raster

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Fetcher loads and decodes one image. Implementations must honour ctx
// cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string, downscale int) (*Bitmap, error)
}

type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

var _ Fetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, downscale int) (*Bitmap, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "raster.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("raster.url", rawURL),
			attribute.Int("raster.downscale", downscale),
		),
	)
	defer span.End()

	bmp, err := f.fetch(ctx, rawURL, downscale)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return bmp, err
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string, downscale int) (*Bitmap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Required by the OpenStreetMap tile usage policy
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/png,image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch raster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("raster server returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode raster: %w", err)
	}

	return Decode(img, downscale), nil
}

// cacheBust appends a random token so a refresh bypasses intermediate
// caches.
func cacheBust(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("token", uuid.NewString())
	u.RawQuery = q.Encode()
	return u.String()
}

// Package distance resolves home-to-event driving distances.
package distance

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"googlemaps.github.io/maps"

	apperrors "mileagecal/internal/errors"
	"mileagecal/internal/metrics"
	"mileagecal/internal/model"
)

const metersPerMile = 1609.344

// Config configures the Distance Matrix client.
type Config struct {
	APIKey string
	// BaseURL overrides the Maps API host, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// GoogleResolver resolves distances through the Google Distance Matrix API.
type GoogleResolver struct {
	client *maps.Client
}

// NewGoogleResolver builds a resolver. An API key is required.
func NewGoogleResolver(cfg Config) (*GoogleResolver, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("distance: maps API key is required")
	}
	opts := []maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, maps.WithHTTPClient(cfg.HTTPClient))
	}
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("distance: %w", err)
	}
	return &GoogleResolver{client: c}, nil
}

// Resolve returns the distance for one origin/destination pair. ok is false
// when the API answered but found no route; err is an ExternalService error
// when the request itself failed.
func (g *GoogleResolver) Resolve(ctx context.Context, origin, destination string) (model.DistanceResult, bool, error) {
	resp, err := g.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin},
		Destinations: []string{destination},
		Units:        maps.UnitsImperial,
	})
	if err != nil {
		metrics.DistanceLookups.WithLabelValues("error").Inc()
		return model.DistanceResult{}, false, apperrors.NewExternalService("distance matrix request failed", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		metrics.DistanceLookups.WithLabelValues("empty").Inc()
		return model.DistanceResult{}, false, nil
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		metrics.DistanceLookups.WithLabelValues(strings.ToLower(el.Status)).Inc()
		return model.DistanceResult{}, false, nil
	}

	metrics.DistanceLookups.WithLabelValues("ok").Inc()
	return model.NewDistanceResult(OneWayMiles(el.Distance), FormatDuration(el.Duration)), true, nil
}

// OneWayMiles prefers the API's own text ("12.3 mi", "1,204 mi") and falls
// back to converting meters when the text is in another unit.
func OneWayMiles(d maps.Distance) model.Miles {
	text := strings.TrimSpace(d.HumanReadable)
	if num, ok := strings.CutSuffix(text, " mi"); ok {
		if m, err := model.ParseMiles(strings.ReplaceAll(num, ",", "")); err == nil {
			return m
		}
	}
	miles := decimal.NewFromInt(int64(d.Meters)).Div(decimal.NewFromFloat(metersPerMile)).Round(1)
	return model.NewMiles(miles)
}

// FormatDuration renders a travel time the way the Maps API labels it,
// e.g. "25 mins", "1 hour 5 mins", "2 days 3 hours".
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Minute) / time.Minute)
	if total < 1 {
		total = 1
	}
	days := total / (24 * 60)
	hours := (total % (24 * 60)) / 60
	mins := total % 60

	switch {
	case days > 0:
		if hours == 0 {
			return plural(days, "day")
		}
		return plural(days, "day") + " " + plural(hours, "hour")
	case hours > 0:
		if mins == 0 {
			return plural(hours, "hour")
		}
		return plural(hours, "hour") + " " + plural(mins, "min")
	default:
		return plural(mins, "min")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

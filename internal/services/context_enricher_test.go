package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/mumble-backend/internal/domain/environment"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/weather"
)

func TestApplyPrecision(t *testing.T) {
	t.Parallel()
	cases := []struct {
		precision string
		wantLat   float64
		wantLng   float64
	}{
		{environment.PrecisionExact, 47.60621, -122.33207},
		{environment.PrecisionCity, 47.61, -122.33},
		{environment.PrecisionNone, 0, 0},
		{"bogus", 47.61, -122.33},
	}
	for _, tc := range cases {
		lat, lng := ApplyPrecision(47.60621, -122.33207, tc.precision)
		if lat != tc.wantLat || lng != tc.wantLng {
			t.Fatalf("ApplyPrecision(%s): want=(%v,%v) got=(%v,%v)", tc.precision, tc.wantLat, tc.wantLng, lat, lng)
		}
	}
}

func TestEnrich(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := time.Date(2024, 12, 25, 7, 30, 0, 0, time.UTC)

	t.Run("lookups fill context", func(t *testing.T) {
		wc := &fakeWeather{
			configured: true,
			wx:         environment.Weather{Condition: "Rain", Description: "light rain", Temperature: 8},
			place:      weather.Place{Name: "Lucerne", Country: "CH"},
		}
		rec := NewContextEnricher(logger.Nop(), wc).Enrich(ctx, EnrichInput{
			DeviceID:   "dev-1",
			Latitude:   47.05,
			Longitude:  8.31,
			Precision:  environment.PrecisionCity,
			Timestamp:  ts,
			DeviceMeta: json.RawMessage(`{"platform":"ios"}`),
		})
		if rec.Location.PlaceName != "Lucerne" || rec.Location.Country != "CH" {
			t.Fatalf("place: got=%+v", rec.Location)
		}
		if rec.Location.AdministrativeArea != environment.UnknownPlace {
			t.Fatalf("admin area: want=%s got=%q", environment.UnknownPlace, rec.Location.AdministrativeArea)
		}
		if rec.Weather.Condition != "Rain" {
			t.Fatalf("weather: want=Rain got=%q", rec.Weather.Condition)
		}
		if rec.Time.SpecialDate != "Christmas" {
			t.Fatalf("special date: got=%v", rec.Time.SpecialDate)
		}
		if string(rec.DeviceMeta) != `{"platform":"ios"}` {
			t.Fatalf("device meta: got=%s", rec.DeviceMeta)
		}
	})

	t.Run("failures use defaults", func(t *testing.T) {
		wc := &fakeWeather{configured: true, wxErr: errors.New("503"), placeErr: errors.New("empty")}
		rec := NewContextEnricher(logger.Nop(), wc).Enrich(ctx, EnrichInput{
			DeviceID:   "dev-1",
			Latitude:   47.05,
			Longitude:  8.31,
			Precision:  environment.PrecisionExact,
			Timestamp:  ts,
			DeviceMeta: json.RawMessage(`not json`),
		})
		if rec.Weather != environment.DefaultWeather() {
			t.Fatalf("weather: want default got=%+v", rec.Weather)
		}
		if rec.Location.PlaceName != environment.UnknownPlace {
			t.Fatalf("place: want=%s got=%q", environment.UnknownPlace, rec.Location.PlaceName)
		}
		if string(rec.DeviceMeta) != "{}" {
			t.Fatalf("device meta: want={} got=%s", rec.DeviceMeta)
		}
	})

	t.Run("none skips lookups", func(t *testing.T) {
		wc := &fakeWeather{configured: true}
		acc := 12.5
		rec := NewContextEnricher(logger.Nop(), wc).Enrich(ctx, EnrichInput{
			DeviceID:  "dev-1",
			Latitude:  47.05,
			Longitude: 8.31,
			Accuracy:  &acc,
			Precision: environment.PrecisionNone,
			Timestamp: ts,
		})
		if rec.Location.Accuracy != nil {
			t.Fatalf("accuracy: want=nil got=%v", *rec.Location.Accuracy)
		}
		if wc.calls != 0 {
			t.Fatalf("lookups: want=0 got=%d", wc.calls)
		}
		if rec.Location.Latitude != 0 || rec.Location.Longitude != 0 {
			t.Fatalf("coords: want=(0,0) got=(%v,%v)", rec.Location.Latitude, rec.Location.Longitude)
		}
	})

	t.Run("unconfigured skips lookups", func(t *testing.T) {
		wc := &fakeWeather{}
		acc := 30.0
		rec := NewContextEnricher(logger.Nop(), wc).Enrich(ctx, EnrichInput{
			DeviceID:  "dev-1",
			Latitude:  47.05,
			Longitude: 8.31,
			Accuracy:  &acc,
			Precision: environment.PrecisionCity,
		})
		if rec.Location.Accuracy == nil || *rec.Location.Accuracy != 30 {
			t.Fatalf("accuracy: want=30 got=%v", rec.Location.Accuracy)
		}
		if wc.calls != 0 {
			t.Fatalf("lookups: want=0 got=%d", wc.calls)
		}
		if rec.Time.Timestamp.IsZero() {
			t.Fatalf("timestamp: want now, got zero")
		}
	})
}

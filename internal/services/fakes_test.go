package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/yungbote/mumble-backend/internal/domain/environment"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/platform/blob"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/openai"
	"github.com/yungbote/mumble-backend/internal/platform/weather"
)

type fakeAI struct {
	obj     map[string]any
	err     error
	pingErr error
}

func (f *fakeAI) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	return f.obj, f.err
}

func (f *fakeAI) GenerateImage(ctx context.Context, prompt string) (openai.ImageGeneration, error) {
	return openai.ImageGeneration{}, errors.New("not used")
}

func (f *fakeAI) Ping(ctx context.Context) error { return f.pingErr }

type fakeWeather struct {
	configured bool
	wx         environment.Weather
	wxErr      error
	place      weather.Place
	placeErr   error
	calls      int32
}

func (f *fakeWeather) Current(ctx context.Context, lat, lon float64) (environment.Weather, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.wx, f.wxErr
}

func (f *fakeWeather) ReverseGeocode(ctx context.Context, lat, lon float64) (weather.Place, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.place, f.placeErr
}

func (f *fakeWeather) Configured() bool { return f.configured }

func newLocalStore(t *testing.T) blob.Store {
	t.Helper()
	st, err := blob.NewLocal(logger.Nop(), t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return st
}

func apiCode(err error) string {
	if err == nil {
		return ""
	}
	return apierr.From(err).Code
}

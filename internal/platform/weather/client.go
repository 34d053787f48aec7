package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/mumble-backend/internal/domain/environment"
	"github.com/yungbote/mumble-backend/internal/pkg/httpx"
	"github.com/yungbote/mumble-backend/internal/platform/envutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

var ErrNotConfigured = errors.New("weather api key not configured")

// Place is a reverse-geocoded location label.
type Place struct {
	Name               string
	Country            string
	AdministrativeArea string
}

// Client looks up current conditions and place names by coordinates.
type Client interface {
	Current(ctx context.Context, lat, lon float64) (environment.Weather, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
	Configured() bool
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) Client {
	return &client{
		log:        log.With("service", "WeatherClient"),
		baseURL:    strings.TrimRight(envutil.String("WEATHER_BASE_URL", "https://api.openweathermap.org"), "/"),
		apiKey:     strings.TrimSpace(envutil.String("WEATHER_API_KEY", "")),
		httpClient: &http.Client{Timeout: time.Duration(envutil.Int("WEATHER_TIMEOUT_SECONDS", 10)) * time.Second},
		maxRetries: envutil.Int("WEATHER_MAX_RETRIES", 1),
	}
}

func (c *client) Configured() bool { return c.apiKey != "" }

type currentResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (c *client) Current(ctx context.Context, lat, lon float64) (environment.Weather, error) {
	var out environment.Weather
	if !c.Configured() {
		return out, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lon))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	var resp currentResponse
	if err := c.get(ctx, "/data/2.5/weather", q, &resp); err != nil {
		return out, err
	}
	if len(resp.Weather) == 0 {
		return out, fmt.Errorf("weather response missing conditions")
	}
	return environment.Weather{
		Condition:   resp.Weather[0].Main,
		Description: resp.Weather[0].Description,
		Temperature: resp.Main.Temp,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed,
		Pressure:    resp.Main.Pressure,
		Icon:        resp.Weather[0].Icon,
	}, nil
}

type geocodeResponse []struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	State   string `json:"state"`
}

func (c *client) ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error) {
	var out Place
	if !c.Configured() {
		return out, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lon))
	q.Set("limit", "1")
	q.Set("appid", c.apiKey)

	var resp geocodeResponse
	if err := c.get(ctx, "/geo/1.0/reverse", q, &resp); err != nil {
		return out, err
	}
	if len(resp) == 0 || strings.TrimSpace(resp[0].Name) == "" {
		return out, fmt.Errorf("no place found")
	}
	return Place{Name: resp[0].Name, Country: resp[0].Country, AdministrativeArea: resp[0].State}, nil
}

func (c *client) get(ctx context.Context, path string, q url.Values, out any) error {
	backoff := 300 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := c.getOnce(ctx, path, q, out)
		if err == nil {
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.maxRetries {
			return err
		}
		c.log.Debug("weather request retrying", "path", path, "attempt", attempt+1, "error", err.Error())
		if err := httpx.Sleep(ctx, httpx.JitterSleep(backoff)); err != nil {
			return err
		}
		backoff *= 2
	}
}

func (c *client) getOnce(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpx.StatusError{Service: "openweathermap", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return json.Unmarshal(raw, out)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

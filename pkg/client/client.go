// Package client is a typed HTTP client for the mumble /api/v1 surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const HeaderDeviceID = "X-Device-Id"

type Client struct {
	baseURL    string
	deviceID   string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds a client for baseURL (scheme and host, optionally with a path
// prefix; "/api/v1" is appended). Every call carries deviceID.
func New(baseURL, deviceID string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("device id required")
	}
	c := &Client{
		baseURL:    baseURL + "/api/v1",
		deviceID:   strings.TrimSpace(deviceID),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		userAgent:  "mumble-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) DeviceID() string { return c.deviceID }

// UploadAudio posts one clip as multipart field "audio". duration is in seconds.
func (c *Client) UploadAudio(ctx context.Context, fileName string, data []byte, duration float64) (*AudioAccepted, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filepath.Base(fileName)))
	h.Set("Content-Type", audioContentType(fileName))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.WriteField("duration", strconv.FormatFloat(duration, 'f', -1, 64)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out AudioAccepted
	if err := c.do(ctx, http.MethodPost, "/audio", mw.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AudioStatus(ctx context.Context, audioID string) (*AudioStatus, error) {
	var out AudioStatus
	if err := c.getJSON(ctx, "/audio/"+url.PathEscape(audioID)+"/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AudioText(ctx context.Context, audioID string) (*AudioText, error) {
	var out AudioText
	if err := c.getJSON(ctx, "/audio/"+url.PathEscape(audioID)+"/text", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitEnvironment(ctx context.Context, in EnvironmentInput) (*EnvironmentResult, error) {
	var out EnvironmentResult
	if err := c.postJSON(ctx, "/environment", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Environment(ctx context.Context, environmentID string) (*Environment, error) {
	var out Environment
	if err := c.getJSON(ctx, "/environment/"+url.PathEscape(environmentID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateImage(ctx context.Context, in GenerateInput) (*GenerateAccepted, error) {
	var out GenerateAccepted
	if err := c.postJSON(ctx, "/images/generate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ImageStatus(ctx context.Context, requestID string) (*ImageStatus, error) {
	var out ImageStatus
	if err := c.getJSON(ctx, "/images/status/"+url.PathEscape(requestID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Gallery(ctx context.Context, q GalleryQuery) (*GalleryPage, error) {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	path := "/images/gallery"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out GalleryPage
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ImageDetails(ctx context.Context, imageID string) (*ImageDetails, error) {
	var out ImageDetails
	if err := c.getJSON(ctx, "/images/"+url.PathEscape(imageID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportImage downloads the full image. The file name comes from the
// Content-Disposition header, falling back to mumble-<id>.jpg.
func (c *Client) ExportImage(ctx context.Context, imageID string) ([]byte, string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/images/"+url.PathEscape(imageID)+"/export", "", nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, "", decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read export body: %w", err)
	}
	name := "mumble-" + imageID + ".jpg"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return data, name, nil
}

func (c *Client) DeleteImage(ctx context.Context, imageID string) error {
	return c.do(ctx, http.MethodDelete, "/images/"+url.PathEscape(imageID), "", nil, nil)
}

func (c *Client) Preferences(ctx context.Context) (*Preferences, error) {
	var out Preferences
	if err := c.getJSON(ctx, "/preferences", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePreferences sends a partial document, e.g.
// {"privacySettings": {"locationPrecision": "exact"}}.
func (c *Client) UpdatePreferences(ctx context.Context, patch map[string]any) (*Preferences, error) {
	var out struct {
		Success     bool        `json:"success"`
		Preferences Preferences `json:"preferences"`
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	if err := c.do(ctx, http.MethodPatch, "/preferences", "application/json", bytes.NewReader(raw), &out); err != nil {
		return nil, err
	}
	return &out.Preferences, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(raw), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderDeviceID, c.deviceID)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details any    `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

func audioContentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".ogg", ".oga":
		return "audio/ogg"
	default:
		return "audio/webm"
	}
}

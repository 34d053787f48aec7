package client

import "time"

// Record statuses reported by the status endpoints.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Terminal reports whether status ends the polling loop.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

type AudioAccepted struct {
	AudioID                 string  `json:"audioId"`
	Status                  string  `json:"status"`
	EstimatedProcessingTime float64 `json:"estimatedProcessingTime"`
}

type Analysis struct {
	Sentiment string   `json:"sentiment"`
	Keywords  []string `json:"keywords"`
	Themes    []string `json:"themes"`
}

type AudioStatus struct {
	AudioID  string    `json:"audioId"`
	Status   string    `json:"status"`
	Text     *string   `json:"text,omitempty"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Error    *string   `json:"error,omitempty"`
}

type AudioText struct {
	AudioID   string    `json:"audioId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Coordinates struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

type EnvironmentInput struct {
	Location  Coordinates    `json:"location"`
	Device    map[string]any `json:"device,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}

type Location struct {
	Latitude           float64  `json:"latitude"`
	Longitude          float64  `json:"longitude"`
	Accuracy           *float64 `json:"accuracy,omitempty"`
	Precision          string   `json:"precision"`
	PlaceName          string   `json:"placeName"`
	Country            string   `json:"country"`
	AdministrativeArea string   `json:"administrativeArea"`
}

type Weather struct {
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Pressure    float64 `json:"pressure"`
	Icon        string  `json:"icon"`
}

type TimeInfo struct {
	Timestamp   time.Time `json:"timestamp"`
	TimeZone    string    `json:"timeZone"`
	IsDaylight  bool      `json:"isDaylight"`
	TimeOfDay   string    `json:"timeOfDay"`
	SpecialDate string    `json:"specialDate,omitempty"`
}

type EnrichedData struct {
	Location Location `json:"location"`
	Weather  Weather  `json:"weather"`
	Time     TimeInfo `json:"time"`
}

type EnvironmentResult struct {
	EnvironmentID string       `json:"environmentId"`
	EnrichedData  EnrichedData `json:"enrichedData"`
}

type Environment struct {
	EnvironmentID string    `json:"environmentId"`
	Location      Location  `json:"location"`
	Weather       Weather   `json:"weather"`
	Time          TimeInfo  `json:"time"`
	CreatedAt     time.Time `json:"createdAt"`
}

type GenerateInput struct {
	AudioID         string `json:"audioId"`
	EnvironmentID   string `json:"environmentId"`
	StylePreference string `json:"stylePreference,omitempty"`
}

type GenerateAccepted struct {
	RequestID     string  `json:"requestId"`
	Status        string  `json:"status"`
	EstimatedTime float64 `json:"estimatedTime"`
}

type ImageStatus struct {
	RequestID    string  `json:"requestId"`
	Status       string  `json:"status"`
	ImageID      string  `json:"imageId,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
	Error        *string `json:"error,omitempty"`
}

type GalleryQuery struct {
	Limit  int
	Offset int
	SortBy string
	Order  string
}

type GalleryItem struct {
	ImageID      string    `json:"imageId"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	Location     string    `json:"location"`
}

type GalleryPage struct {
	Images  []GalleryItem `json:"images"`
	Total   int64         `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"hasMore"`
}

type ImageDetails struct {
	ImageID      string    `json:"imageId"`
	ImageURL     string    `json:"imageUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Prompt       string    `json:"prompt"`
	AudioText    *string   `json:"audioText"`
	CreatedAt    time.Time `json:"createdAt"`
	Environment  *struct {
		Location struct {
			PlaceName string `json:"placeName"`
			Country   string `json:"country"`
		} `json:"location"`
		Weather struct {
			Condition   string  `json:"condition"`
			Temperature float64 `json:"temperature"`
		} `json:"weather"`
		Time struct {
			TimeOfDay string `json:"timeOfDay"`
		} `json:"time"`
	} `json:"environment"`
}

type Preferences struct {
	ImageStyle      string `json:"imageStyle"`
	PrivacySettings struct {
		SaveAudioRecordings bool   `json:"saveAudioRecordings"`
		LocationPrecision   string `json:"locationPrecision"`
		ShareAnalyticsData  bool   `json:"shareAnalyticsData"`
	} `json:"privacySettings"`
	Notifications struct {
		ImageGeneration bool `json:"imageGeneration"`
		NewFeatures     bool `json:"newFeatures"`
	} `json:"notifications"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Health struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

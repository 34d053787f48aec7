package environment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PrecisionExact = "exact"
	PrecisionCity  = "city"
	PrecisionNone  = "none"
)

const UnknownPlace = "Unknown"

type Location struct {
	Latitude           float64  `gorm:"column:latitude" json:"latitude"`
	Longitude          float64  `gorm:"column:longitude" json:"longitude"`
	Accuracy           *float64 `gorm:"column:accuracy" json:"accuracy,omitempty"`
	Precision          string   `gorm:"column:precision" json:"precision"`
	PlaceName          string   `gorm:"column:place_name" json:"placeName"`
	Country            string   `gorm:"column:country" json:"country"`
	AdministrativeArea string   `gorm:"column:administrative_area" json:"administrativeArea"`
}

type Weather struct {
	Condition   string  `gorm:"column:condition" json:"condition"`
	Description string  `gorm:"column:description" json:"description"`
	Temperature float64 `gorm:"column:temperature" json:"temperature"`
	Humidity    float64 `gorm:"column:humidity" json:"humidity"`
	WindSpeed   float64 `gorm:"column:wind_speed" json:"windSpeed"`
	Pressure    float64 `gorm:"column:pressure" json:"pressure"`
	Icon        string  `gorm:"column:icon" json:"icon"`
}

type TimeInfo struct {
	Timestamp   time.Time `gorm:"column:timestamp" json:"timestamp"`
	TimeZone    string    `gorm:"column:time_zone" json:"timeZone"`
	IsDaylight  bool      `gorm:"column:is_daylight" json:"isDaylight"`
	TimeOfDay   string    `gorm:"column:time_of_day" json:"timeOfDay"`
	SpecialDate string    `gorm:"column:special_date" json:"specialDate,omitempty"`
}

// ContextRecord is an enriched environment snapshot. It is written once, fully
// populated, and never updated.
type ContextRecord struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID   string         `gorm:"column:device_id;not null;index" json:"device_id"`
	Location   Location       `gorm:"embedded;embeddedPrefix:loc_" json:"location"`
	Weather    Weather        `gorm:"embedded;embeddedPrefix:weather_" json:"weather"`
	Time       TimeInfo       `gorm:"embedded;embeddedPrefix:time_" json:"time"`
	DeviceMeta datatypes.JSON `gorm:"column:device_meta;type:jsonb" json:"device,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ContextRecord) TableName() string { return "context_record" }

func IsValidPrecision(p string) bool {
	switch p {
	case PrecisionExact, PrecisionCity, PrecisionNone:
		return true
	default:
		return false
	}
}

// DefaultWeather is substituted whenever the weather lookup fails or is skipped.
func DefaultWeather() Weather {
	return Weather{
		Condition:   "Clear",
		Description: "clear sky",
		Temperature: 20,
		Humidity:    50,
		WindSpeed:   5,
		Pressure:    1013,
		Icon:        "01d",
	}
}

// EnrichedView is the subset returned by the submit call.
type EnrichedView struct {
	Location Location `json:"location"`
	Weather  Weather  `json:"weather"`
	Time     TimeInfo `json:"time"`
}

func (r *ContextRecord) EnrichedView() EnrichedView {
	return EnrichedView{Location: r.Location, Weather: r.Weather, Time: r.Time}
}

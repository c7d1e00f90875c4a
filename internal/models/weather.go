package models

import "time"

// WeatherSnapshot is one observation of current weather at a location. Temperature is in
// the provider's native unit.
type WeatherSnapshot struct {
	Location           string    `json:"location"`
	Temperature        float64   `json:"temperature"`
	WeatherDescription string    `json:"weather_description"`
	Humidity           int       `json:"humidity"`
	ObservedAt         time.Time `json:"observed_at"`
}

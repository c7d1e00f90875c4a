package weathergateway

// currentResponse is the provider's /current payload. Only the fields the snapshot needs
// are decoded; pointers distinguish absent values from zeroes.
type currentResponse struct {
	Success *bool          `json:"success,omitempty"`
	Error   *providerError `json:"error,omitempty"`
	Current *currentBlock  `json:"current,omitempty"`
}

type providerError struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

type currentBlock struct {
	Temperature         *float64 `json:"temperature"`
	WeatherDescriptions []string `json:"weather_descriptions"`
	Humidity            *int     `json:"humidity"`
}

// cachedSnapshot is the Redis representation of a snapshot.
type cachedSnapshot struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Description string  `json:"weather_description"`
	Humidity    int     `json:"humidity"`
	ObservedAt  string  `json:"observed_at"`
}

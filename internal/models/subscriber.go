package models

import "time"

// Units is the temperature unit a subscriber asked for.
type Units string

const (
	UnitsCelsius    Units = "Celsius"
	UnitsFahrenheit Units = "Fahrenheit"
)

// Valid reports whether u is one of the supported units.
func (u Units) Valid() bool {
	return u == UnitsCelsius || u == UnitsFahrenheit
}

// Subscriber is a registered user with a location and delivery preferences.
type Subscriber struct {
	UserID             string    `json:"user_id"`
	EmailID            string    `json:"email_id,omitempty"`
	PhoneNumber        string    `json:"phone_number,omitempty"`
	Location           string    `json:"location"`
	NotificationMethod []Method  `json:"notification_method"`
	PreferredUnits     Units     `json:"preferred_units"`
	CreatedAt          time.Time `json:"created_at"`
}

// ContactFor returns the contact field matching a delivery method, or "" if the
// subscriber has none.
func (s Subscriber) ContactFor(m Method) string {
	switch m {
	case MethodEmail:
		return s.EmailID
	case MethodSMS:
		return s.PhoneNumber
	}
	return ""
}

// MethodStrings returns the requested methods as plain strings, in request order.
func (s Subscriber) MethodStrings() []string {
	out := make([]string, len(s.NotificationMethod))
	for i, m := range s.NotificationMethod {
		out[i] = string(m)
	}
	return out
}

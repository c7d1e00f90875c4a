package subscription

import (
	"strings"

	"weather-notifier/internal/models"
)

// Request is the subscribe payload. Field order is the order violations are reported in.
// PreferredUnits is nil when the field is absent or null; an explicit "" is rejected.
type Request struct {
	UserID             string   `json:"user_id" validate:"required"`
	Location           string   `json:"location" validate:"required"`
	NotificationMethod []string `json:"notification_method" validate:"required,min=1,dive,oneof=email SMS"`
	EmailID            string   `json:"email_id,omitempty" validate:"required_without=PhoneNumber"`
	PhoneNumber        string   `json:"phone_number,omitempty" validate:"required_without=EmailID"`
	PreferredUnits     *string  `json:"preferred_units,omitempty" validate:"omitempty,oneof=Celsius Fahrenheit"`
}

// Result is returned on an accepted subscription. Weather is nil when enrichment was
// unavailable.
type Result struct {
	Message string                  `json:"message"`
	Weather *models.WeatherSnapshot `json:"weather,omitempty"`
}

const SuccessMessage = "User subscribed successfully!"

// EmailLookup is the /get_user_email response body.
type EmailLookup struct {
	UserID  string `json:"user_id"`
	EmailID string `json:"email_id"`
}

func (r Request) normalized() Request {
	out := Request{
		UserID:         strings.TrimSpace(r.UserID),
		Location:       strings.TrimSpace(r.Location),
		EmailID:        strings.TrimSpace(r.EmailID),
		PhoneNumber:    strings.TrimSpace(r.PhoneNumber),
	}
	if r.PreferredUnits != nil {
		units := strings.TrimSpace(*r.PreferredUnits)
		out.PreferredUnits = &units
	}
	if r.NotificationMethod != nil {
		out.NotificationMethod = make([]string, 0, len(r.NotificationMethod))
		seen := make(map[string]bool, len(r.NotificationMethod))
		for _, m := range r.NotificationMethod {
			m = strings.TrimSpace(m)
			if seen[m] {
				continue
			}
			seen[m] = true
			out.NotificationMethod = append(out.NotificationMethod, m)
		}
	}
	return out
}

func (r Request) toSubscriber() models.Subscriber {
	units := models.UnitsCelsius
	if r.PreferredUnits != nil {
		units = models.Units(*r.PreferredUnits)
	}
	methods := make([]models.Method, len(r.NotificationMethod))
	for i, m := range r.NotificationMethod {
		methods[i] = models.Method(m)
	}
	return models.Subscriber{
		UserID:             r.UserID,
		EmailID:            r.EmailID,
		PhoneNumber:        r.PhoneNumber,
		Location:           r.Location,
		NotificationMethod: methods,
		PreferredUnits:     units,
	}
}

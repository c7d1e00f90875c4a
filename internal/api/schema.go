package api

import "weather-notifier/internal/common/validation"

// subscribeSchema type-checks the raw /subscribe body. Presence and value rules are applied
// afterwards on the decoded request.
var subscribeSchema = validation.MustCompileSchema(`{
	"type": "object",
	"properties": {
		"user_id":             {"type": ["string", "null"]},
		"location":            {"type": ["string", "null"]},
		"email_id":            {"type": ["string", "null"]},
		"phone_number":        {"type": ["string", "null"]},
		"preferred_units":     {"type": ["string", "null"]},
		"notification_method": {
			"type": ["array", "null"],
			"items": {"type": "string"}
		}
	}
}`)

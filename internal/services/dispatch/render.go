package dispatch

import (
	"strconv"
	"strings"

	"weather-notifier/internal/models"
)

func messageData(snap models.WeatherSnapshot, location string) map[string]string {
	return map[string]string{
		"location":    location,
		"description": snap.WeatherDescription,
		"temperature": strconv.FormatFloat(snap.Temperature, 'f', -1, 64),
		"humidity":    strconv.Itoa(snap.Humidity),
	}
}

// renderTemplate substitutes {{key}} placeholders in a single scan of tmpl. Unknown
// placeholders are dropped; substituted values are never re-scanned.
func renderTemplate(tmpl string, data map[string]string) string {
	var b strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end == -1 {
			b.WriteString(rest)
			break
		}

		b.WriteString(rest[:start])
		key := rest[start+2 : start+2+end]
		b.WriteString(data[key])
		rest = rest[start+2+end+2:]
	}
	return b.String()
}

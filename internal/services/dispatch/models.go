package dispatch

import "weather-notifier/internal/models"

// Delivery is one attempted (subscriber, channel) pair in a run's report.
type Delivery struct {
	UserID string        `json:"user_id"`
	Method models.Method `json:"method"`
	Status models.Status `json:"status"`
}

// Report lists every attempt of a run, ordered by subscriber scan order then by the
// subscriber's channel order.
type Report struct {
	NotificationsSent []Delivery `json:"notifications_sent"`
}

// Counts returns the number of Sent and Failed entries.
func (r *Report) Counts() (sent, failed int) {
	for _, d := range r.NotificationsSent {
		if d.Status == models.StatusSent {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}

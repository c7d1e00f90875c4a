package models

import "time"

// Method is a delivery channel.
type Method string

const (
	MethodEmail Method = "email"
	MethodSMS   Method = "SMS"
)

// Valid reports whether m names a supported channel.
func (m Method) Valid() bool {
	return m == MethodEmail || m == MethodSMS
}

// Status is the outcome of one delivery attempt.
type Status string

const (
	StatusSent   Status = "Sent"
	StatusFailed Status = "Failed"
)

// NotificationRecord is one delivery attempt for a (subscriber, channel) pair.
type NotificationRecord struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Location string    `json:"location"`
	Method   Method    `json:"notification_method"`
	Status   Status    `json:"status"`
	Message  string    `json:"message"`
	LoggedAt time.Time `json:"timestamp"`
}

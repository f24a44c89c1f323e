package entity

import "time"

// NotificationType describes why a notification was written
type NotificationType string

const (
	NotificationApprovalRequest NotificationType = "approval_request"
	NotificationApproved        NotificationType = "approved"
	NotificationRejected        NotificationType = "rejected"
	NotificationCancelled       NotificationType = "cancelled"
	NotificationReminder        NotificationType = "reminder"
)

// Notification is written once per target; only IsRead changes afterwards
type Notification struct {
	ID              string           `json:"id"`
	Target          string           `json:"target"`
	From            string           `json:"from"`
	Type            NotificationType `json:"type"`
	Message         string           `json:"message"`
	Link            string           `json:"link"`
	IsRead          bool             `json:"isRead"`
	CreatedAt       time.Time        `json:"createdAt"`
	SourceRequestID string           `json:"sourceRequestId"`
}

// Balance holds an employee's vacation day counters for one year
type Balance struct {
	Owner     string  `json:"owner"`
	Year      int     `json:"year"`
	Total     float64 `json:"total"`
	Used      float64 `json:"used"`
	Remaining float64 `json:"remaining"`
}

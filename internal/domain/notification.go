package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type NotificationType string

const (
	NotificationNewDelivery NotificationType = "new_delivery"
	NotificationAccepted    NotificationType = "accepted"
	NotificationCompleted   NotificationType = "completed"
	NotificationDeclined    NotificationType = "declined"
	NotificationKYCVerified NotificationType = "kyc_verified"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewDelivery, NotificationAccepted, NotificationCompleted,
		NotificationDeclined, NotificationKYCVerified:
		return true
	}
	return false
}

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	IsRead    bool             `json:"isRead"`
	OrderID   string           `json:"orderId,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// NewNotification is the caller-supplied part of a notification; the service
// fills in ID, timestamp and read state.
type NewNotification struct {
	Type    NotificationType `json:"type" validate:"required"`
	Title   string           `json:"title" validate:"required,max=120"`
	Message string           `json:"message" validate:"required,max=1000"`
	OrderID string           `json:"orderId,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

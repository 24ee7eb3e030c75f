package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusActive    DeliveryStatus = "active"
	DeliveryStatusCompleted DeliveryStatus = "completed"
)

type DeliveryFilter string

const (
	DeliveryFilterAll       DeliveryFilter = "all"
	DeliveryFilterAvailable DeliveryFilter = "available"
	DeliveryFilterActive    DeliveryFilter = "active"
	DeliveryFilterCompleted DeliveryFilter = "completed"
)

func ParseDeliveryFilter(s string) (DeliveryFilter, bool) {
	switch DeliveryFilter(s) {
	case "":
		return DeliveryFilterAll, true
	case DeliveryFilterAll, DeliveryFilterAvailable, DeliveryFilterActive, DeliveryFilterCompleted:
		return DeliveryFilter(s), true
	}
	return "", false
}

// Match reports whether a delivery is visible under the filter.
// "available" means offers not yet accepted.
func (f DeliveryFilter) Match(d *Delivery) bool {
	switch f {
	case DeliveryFilterAvailable:
		return d.Status == DeliveryStatusPending
	case DeliveryFilterActive:
		return d.Status == DeliveryStatusActive
	case DeliveryFilterCompleted:
		return d.Status == DeliveryStatusCompleted
	default:
		return true
	}
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Location struct {
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Delivery struct {
	ID              uuid.UUID       `json:"id"`
	FulfillerID     uuid.UUID       `json:"fulfillerId"`
	OrderID         string          `json:"orderId"`
	PickupLocation  Location        `json:"pickupLocation"`
	DropOffLocation Location        `json:"dropOffLocation"`
	Distance        float64         `json:"distance"`
	Amount          decimal.Decimal `json:"amount"`
	Status          DeliveryStatus  `json:"status"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	Items           []string        `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	AcceptedAt      *time.Time      `json:"acceptedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	EstimatedTime   *int            `json:"estimatedTime,omitempty"`
}

type TodayDeliveries struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Active    int `json:"active"`
	Available int `json:"available"`
}

type DeliveryStats struct {
	TodayDeliveries TodayDeliveries `json:"todayDeliveries"`
	TodayEarnings   decimal.Decimal `json:"todayEarnings"`
	EarningsChange  int             `json:"earningsChange"`
	AcceptanceRate  *int            `json:"acceptanceRate"`
	AvgDeliveryTime *int            `json:"avgDeliveryTime"`
}

type FulfillerProfile struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	Location        string    `json:"location"`
	Phone           string    `json:"phone"`
	JoinedDate      time.Time `json:"joinedDate"`
	Rating          float64   `json:"rating"`
	TotalDeliveries int       `json:"totalDeliveries"`
	Avatar          *string   `json:"avatar,omitempty"`
}

type FulfillerDashboard struct {
	Deliveries []*Delivery       `json:"deliveries"`
	Stats      DeliveryStats     `json:"stats"`
	Profile    *FulfillerProfile `json:"userProfile"`
}

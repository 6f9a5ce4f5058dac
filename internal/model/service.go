package model

import "time"

// Package is one price tier of a catalog service
type Package struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        int64  `json:"price"`
	DeliveryDays int    `json:"delivery_days,omitempty"`
}

// Rating is derived from completed, rated bookings
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Service is a catalog entry offered by a provider
type Service struct {
	ID              string    `json:"id"`
	ProviderID      string    `json:"provider_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category,omitempty"`
	Packages        []Package `json:"packages"`
	Rating          Rating    `json:"rating"`
	PopularityScore float64   `json:"popularity_score"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FindPackage returns the package with the given name
func (s *Service) FindPackage(name string) (Package, bool) {
	for _, p := range s.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// ServiceSort selects the ordering of catalog listings
type ServiceSort string

const (
	SortNewest     ServiceSort = "newest"
	SortPopularity ServiceSort = "popularity"
	SortRating     ServiceSort = "rating"
)

// BookingStatus is the lifecycle state of a service booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a client's order of one package of a service.
// RatingScore is zero until the client rates the completed booking.
type Booking struct {
	ID          string        `json:"id"`
	ServiceID   string        `json:"service_id"`
	ClientID    string        `json:"client_id"`
	ProviderID  string        `json:"provider_id"`
	PackageName string        `json:"package_name"`
	Price       int64         `json:"price"`
	Status      BookingStatus `json:"status"`
	RatingScore int           `json:"rating_score,omitempty"`
	RatedAt     *time.Time    `json:"rated_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

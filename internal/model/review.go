package model

import "time"

// Review is a client's rating of the provider who completed a task
type Review struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	AuthorID   string    `json:"author_id"`
	ProviderID string    `json:"provider_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProviderRatingSummary aggregates a provider's task reviews
type ProviderRatingSummary struct {
	ProviderID    string  `json:"provider_id"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	RatingCounts  struct {
		FiveStar  int `json:"five_star"`
		FourStar  int `json:"four_star"`
		ThreeStar int `json:"three_star"`
		TwoStar   int `json:"two_star"`
		OneStar   int `json:"one_star"`
	} `json:"rating_counts"`
}

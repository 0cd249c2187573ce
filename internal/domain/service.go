package domain

import "time"

// ProviderSummary is the denormalized provider block embedded in a service
// document for display.
type ProviderSummary struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

type CategorySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// ReviewSummary is the per-review slice embedded in a service document.
type ReviewSummary struct {
	ID           string `json:"id"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment,omitempty"`
	CustomerName string `json:"customer_name"`
}

// Service is a bookable offering published by a provider.
type Service struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Price       float64          `json:"price"`
	Location    string           `json:"location"`
	IsAvailable bool             `json:"is_available"`
	Images      []string         `json:"images,omitempty"`
	ProviderID  string           `json:"provider_id"`
	CategoryID  string           `json:"category_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Provider    *ProviderSummary `json:"provider,omitempty"`
	Category    *CategorySummary `json:"category,omitempty"`
	Reviews     []ReviewSummary  `json:"reviews,omitempty"`
}

// AverageRating returns the mean of the embedded review ratings, 0 when the
// service has no reviews yet.
func (s Service) AverageRating() float64 {
	if len(s.Reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range s.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(s.Reviews))
}

// ServiceCategory is a catalog grouping, listed alphabetically.
type ServiceCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

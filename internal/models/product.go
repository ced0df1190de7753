package models

import "time"

// Product is a catalog item. Dimensions are optional and only used for shipping quotes.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Category  string    `json:"category"`
	Image     *string   `json:"image"`
	Weight    *float64  `json:"weight,omitempty"`
	Height    *float64  `json:"height,omitempty"`
	Width     *float64  `json:"width,omitempty"`
	Length    *float64  `json:"length,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

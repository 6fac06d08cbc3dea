package model

import "time"

// Material is one ingredient line of a recipe. Materials always live in
// the inventory domain.
type Material struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int64  `json:"quantity"`
}

// Recipe is the ordered material list needed to craft one unit of the
// result item.
type Recipe struct {
	ID         int64      `json:"id"`
	Category   string     `json:"category"`
	ResultName string     `json:"result_name"`
	Materials  []Material `json:"materials"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

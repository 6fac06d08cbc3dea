package model

import "time"

// TagColor is the dashboard display color of a tag.
type TagColor string

const (
	ColorGray   TagColor = "gray"
	ColorRed    TagColor = "red"
	ColorOrange TagColor = "orange"
	ColorYellow TagColor = "yellow"
	ColorGreen  TagColor = "green"
	ColorBlue   TagColor = "blue"
	ColorPurple TagColor = "purple"
	ColorPink   TagColor = "pink"
)

func (c TagColor) Valid() bool {
	switch c {
	case ColorGray, ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBlue, ColorPurple, ColorPink:
		return true
	}
	return false
}

// Tag is a named item grouping scoped to one (domain, category). Within
// a scope an item belongs to at most one tag.
type Tag struct {
	ID        int64     `json:"id"`
	Domain    Domain    `json:"domain"`
	Category  string    `json:"category"`
	Name      string    `json:"name"`
	Color     TagColor  `json:"color"`
	Items     []string  `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasItem reports whether name is a member of the tag.
func (t *Tag) HasItem(name string) bool {
	for _, it := range t.Items {
		if it == name {
			return true
		}
	}
	return false
}

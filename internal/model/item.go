package model

import "time"

// Domain names the two parallel catalogs. Items in the crafting domain
// may reference a same-category counterpart in the inventory domain and
// vice versa.
type Domain string

const (
	DomainInventory Domain = "inventory"
	DomainCrafting  Domain = "crafting"
)

// Other returns the opposite catalog domain.
func (d Domain) Other() Domain {
	if d == DomainInventory {
		return DomainCrafting
	}
	return DomainInventory
}

// Valid reports whether d is one of the two known domains.
func (d Domain) Valid() bool {
	return d == DomainInventory || d == DomainCrafting
}

// ItemType classifies how an item participates in recipe propagation.
// Only intermediate and finished items consume materials when crafted.
type ItemType string

const (
	TypeMaterial     ItemType = "material"
	TypeIntermediate ItemType = "intermediate"
	TypeFinished     ItemType = "finished"
)

func (t ItemType) Valid() bool {
	return t == TypeMaterial || t == TypeIntermediate || t == TypeFinished
}

// HasRecipe reports whether items of this type pull materials on craft.
func (t ItemType) HasRecipe() bool {
	return t == TypeIntermediate || t == TypeFinished
}

// LinkedRef points at an item's counterpart in the other domain.
type LinkedRef struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// Worker is a collaborator currently working on an item.
type Worker struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	StartedAt time.Time `json:"started_at"`
}

type Item struct {
	ID        int64      `json:"id"`
	Domain    Domain     `json:"domain"`
	Category  string     `json:"category"`
	Name      string     `json:"name"`
	Quantity  int64      `json:"quantity"`
	Required  int64      `json:"required"`
	Type      ItemType   `json:"item_type"`
	Tier      *int       `json:"tier,omitempty"` // crafting only, 1-3
	Emoji     string     `json:"emoji"`
	Linked    *LinkedRef `json:"linked,omitempty"`
	SortOrder int        `json:"sort_order"`
	Workers   []Worker   `json:"workers"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Key is the (domain, category, name) identity of an item.
type Key struct {
	Domain   Domain
	Category string
	Name     string
}

func (i *Item) Key() Key {
	return Key{Domain: i.Domain, Category: i.Category, Name: i.Name}
}

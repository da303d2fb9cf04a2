package models

import "time"

// Ad represents a classified listing
type Ad struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Location    []string  `json:"location" bson:"location"`
	Category    []string  `json:"category" bson:"category"`
	Price       string    `json:"price" bson:"price"`
	Image       string    `json:"image" bson:"image"` // empty means no image
	User        string    `json:"user" bson:"user"`   // owner id
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// AdPatch carries a partial update; nil fields are left untouched
type AdPatch struct {
	Title       *string
	Description *string
	Location    []string
	Category    []string
	Price       *string
	Image       *string
}

// Empty reports whether the patch changes nothing
func (p AdPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.Category == nil && p.Price == nil && p.Image == nil
}

// Apply copies the set fields of p onto ad
func (p AdPatch) Apply(ad *Ad) {
	if p.Title != nil {
		ad.Title = *p.Title
	}
	if p.Description != nil {
		ad.Description = *p.Description
	}
	if p.Location != nil {
		ad.Location = p.Location
	}
	if p.Category != nil {
		ad.Category = p.Category
	}
	if p.Price != nil {
		ad.Price = *p.Price
	}
	if p.Image != nil {
		ad.Image = *p.Image
	}
}

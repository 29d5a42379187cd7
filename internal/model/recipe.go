package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe is a user's recipe plus its many-to-many links.
//
// Tags and Ingredients are always loaded together with the recipe by the
// repository, so callers can build either the list shape (ids only) or the
// detail shape (nested objects) without another query.
//
// Image is the path of the uploaded image relative to the media root,
// e.g. "uploads/recipe/<recipe-id>-<xid>.jpg". Empty means no image.
type Recipe struct {
	ID          int64
	UserID      string
	Title       string
	TimeMinutes int
	Price       decimal.Decimal
	Link        string
	Image       string
	Tags        []Tag
	Ingredients []Ingredient
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r Recipe) String() string {
	return r.Title
}

// TagIDs returns the ids of the attached tags in load order.
func (r Recipe) TagIDs() []int64 {
	ids := make([]int64, 0, len(r.Tags))
	for _, t := range r.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// IngredientIDs returns the ids of the attached ingredients in load order.
func (r Recipe) IngredientIDs() []int64 {
	ids := make([]int64, 0, len(r.Ingredients))
	for _, i := range r.Ingredients {
		ids = append(ids, i.ID)
	}
	return ids
}

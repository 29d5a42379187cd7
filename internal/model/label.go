package model

// Tag is a per-user label that can be attached to recipes ("Vegan", "Dessert").
// Names are not unique; the same user may create two tags with the same name.
type Tag struct {
	ID     int64  `json:"id"`
	UserID string `json:"-"`
	Name   string `json:"name"`
}

func (t Tag) String() string {
	return t.Name
}

// Ingredient is a per-user ingredient that can be attached to recipes.
// Ownership rules are identical to Tag.
type Ingredient struct {
	ID     int64  `json:"id"`
	UserID string `json:"-"`
	Name   string `json:"name"`
}

func (i Ingredient) String() string {
	return i.Name
}

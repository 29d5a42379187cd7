// Package repository declares the storage contracts the service layer depends on.
//
// Services receive these interfaces, never *sqlite.DB, so the storage engine
// can be swapped (or faked in tests) without touching business rules.
// Every method that takes an owner ID scopes its query to that owner:
// a caller can never read or change another user's rows through this layer.
package repository

import (
	"context"

	"github.com/sakif/recipe-api/internal/model"
)

// LabelFilter narrows a tag or ingredient listing.
type LabelFilter struct {
	// AssignedOnly keeps only entries attached to at least one of the
	// owner's recipes.
	AssignedOnly bool
}

// RecipeFilter narrows a recipe listing. Empty slices impose no restriction;
// non-empty slices keep recipes linked to at least one of the ids. Both
// filters combine with AND.
type RecipeFilter struct {
	TagIDs        []int64
	IngredientIDs []int64
}

// RecipeLinks carries the many-to-many ids to store for a recipe.
// A nil slice leaves the existing links untouched; a non-nil (possibly empty)
// slice replaces them.
type RecipeLinks struct {
	TagIDs        []int64
	IngredientIDs []int64
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type TagRepository interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	ListTags(ctx context.Context, ownerID string, filter LabelFilter) ([]model.Tag, error)
	// CountOwnedTags returns how many of ids exist and belong to ownerID.
	CountOwnedTags(ctx context.Context, ownerID string, ids []int64) (int, error)
}

type IngredientRepository interface {
	CreateIngredient(ctx context.Context, ingredient *model.Ingredient) error
	ListIngredients(ctx context.Context, ownerID string, filter LabelFilter) ([]model.Ingredient, error)
	CountOwnedIngredients(ctx context.Context, ownerID string, ids []int64) (int, error)
}

type RecipeRepository interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe, links RecipeLinks) error
	GetRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error)
	ListRecipes(ctx context.Context, ownerID string, filter RecipeFilter) ([]model.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *model.Recipe, links RecipeLinks) error
	SetRecipeImage(ctx context.Context, ownerID string, id int64, image string) error
	DeleteRecipe(ctx context.Context, ownerID string, id int64) error
}

package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/repository"
)

func TestCreateRecipe_WithLinks(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "usman@gmail.com")
	vegan := createTestTag(t, db, user, "Vegan")
	dessert := createTestTag(t, db, user, "Dessert")
	lime := createTestIngredient(t, db, user, "Lime")

	recipe := createTestRecipe(t, db, user, "Lime cheesecake", repository.RecipeLinks{
		TagIDs:        []int64{vegan.ID, dessert.ID},
		IngredientIDs: []int64{lime.ID},
	})
	if recipe.ID == 0 {
		t.Fatal("CreateRecipe() did not set recipe.ID")
	}

	got, err := db.GetRecipe(context.Background(), user.ID, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe() error = %v", err)
	}

	if got.Title != "Lime cheesecake" {
		t.Errorf("Title = %q, want %q", got.Title, "Lime cheesecake")
	}
	if !got.Price.Equal(decimal.RequireFromString("5")) {
		t.Errorf("Price = %s, want 5.00", got.Price)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("len(Tags) = %d, want 2", len(got.Tags))
	}
	if got.Tags[0].Name != "Vegan" || got.Tags[1].Name != "Dessert" {
		t.Errorf("Tags = %v, want [Vegan Dessert]", got.Tags)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0].ID != lime.ID {
		t.Errorf("Ingredients = %v, want [Lime]", got.Ingredients)
	}
}

func TestGetRecipe_OtherOwnerIsNotFound(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "usman@gmail.com")
	other := createTestUser(t, db, "usman1@gmail.com")
	recipe := createTestRecipe(t, db, owner, "Biryani", repository.RecipeLinks{})

	_, err := db.GetRecipe(context.Background(), other.ID, recipe.ID)

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetRecipe() error = %v, want ErrNotFound", err)
	}
}

func TestListRecipes_LimitedToOwnerNewestFirst(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "usman@gmail.com")
	other := createTestUser(t, db, "usman1@gmail.com")
	first := createTestRecipe(t, db, owner, "First", repository.RecipeLinks{})
	createTestRecipe(t, db, other, "Not mine", repository.RecipeLinks{})
	second := createTestRecipe(t, db, owner, "Second", repository.RecipeLinks{})

	recipes, err := db.ListRecipes(context.Background(), owner.ID, repository.RecipeFilter{})
	if err != nil {
		t.Fatalf("ListRecipes() error = %v", err)
	}

	if len(recipes) != 2 {
		t.Fatalf("len(recipes) = %d, want 2", len(recipes))
	}
	if recipes[0].ID != second.ID || recipes[1].ID != first.ID {
		t.Errorf("order = [%d %d], want [%d %d]", recipes[0].ID, recipes[1].ID, second.ID, first.ID)
	}
}

func TestListRecipes_FilterByTagsAndIngredients(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "usman@gmail.com")
	vegan := createTestTag(t, db, user, "Vegan")
	veg := createTestTag(t, db, user, "Vegetarian")
	feta := createTestIngredient(t, db, user, "Feta")
	chicken := createTestIngredient(t, db, user, "Chicken")

	curry := createTestRecipe(t, db, user, "Thai curry", repository.RecipeLinks{
		TagIDs: []int64{vegan.ID}, IngredientIDs: []int64{chicken.ID},
	})
	tahini := createTestRecipe(t, db, user, "Aubergine with tahini", repository.RecipeLinks{
		TagIDs: []int64{veg.ID, vegan.ID}, IngredientIDs: []int64{feta.ID},
	})
	fish := createTestRecipe(t, db, user, "Fish and chips", repository.RecipeLinks{})

	tests := []struct {
		name   string
		filter repository.RecipeFilter
		want   []int64
	}{
		{"no filter", repository.RecipeFilter{}, []int64{fish.ID, tahini.ID, curry.ID}},
		{"tags intersect", repository.RecipeFilter{TagIDs: []int64{vegan.ID, veg.ID}}, []int64{tahini.ID, curry.ID}},
		{"single tag", repository.RecipeFilter{TagIDs: []int64{veg.ID}}, []int64{tahini.ID}},
		{"ingredients", repository.RecipeFilter{IngredientIDs: []int64{feta.ID}}, []int64{tahini.ID}},
		{"tags AND ingredients", repository.RecipeFilter{
			TagIDs: []int64{vegan.ID}, IngredientIDs: []int64{chicken.ID},
		}, []int64{curry.ID}},
		{"no match", repository.RecipeFilter{TagIDs: []int64{9999}}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipes, err := db.ListRecipes(context.Background(), user.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListRecipes() error = %v", err)
			}
			got := make([]int64, 0, len(recipes))
			for _, r := range recipes {
				got = append(got, r.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestUpdateRecipe_NilLinksKeepExisting(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "usman@gmail.com")
	tag := createTestTag(t, db, user, "Main course")
	recipe := createTestRecipe(t, db, user, "Sample", repository.RecipeLinks{TagIDs: []int64{tag.ID}})

	recipe.Title = "Renamed"
	if err := db.UpdateRecipe(context.Background(), recipe, repository.RecipeLinks{}); err != nil {
		t.Fatalf("UpdateRecipe() error = %v", err)
	}

	got, err := db.GetRecipe(context.Background(), user.ID, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe() error = %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("Title = %q, want %q", got.Title, "Renamed")
	}
	if len(got.Tags) != 1 {
		t.Errorf("len(Tags) = %d, want 1 (links untouched)", len(got.Tags))
	}
}

func TestUpdateRecipe_EmptyLinksClear(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "usman@gmail.com")
	tag := createTestTag(t, db, user, "Main course")
	recipe := createTestRecipe(t, db, user, "Sample", repository.RecipeLinks{TagIDs: []int64{tag.ID}})

	err := db.UpdateRecipe(context.Background(), recipe, repository.RecipeLinks{TagIDs: []int64{}})
	if err != nil {
		t.Fatalf("UpdateRecipe() error = %v", err)
	}

	got, err := db.GetRecipe(context.Background(), user.ID, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe() error = %v", err)
	}
	if len(got.Tags) != 0 {
		t.Errorf("len(Tags) = %d, want 0", len(got.Tags))
	}
}

func TestUpdateRecipe_NotFound(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "usman@gmail.com")
	other := createTestUser(t, db, "usman1@gmail.com")
	recipe := createTestRecipe(t, db, owner, "Sample", repository.RecipeLinks{})

	recipe.UserID = other.ID
	err := db.UpdateRecipe(context.Background(), recipe, repository.RecipeLinks{})

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateRecipe() error = %v, want ErrNotFound", err)
	}
}

func TestSetRecipeImage(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "usman@gmail.com")
	recipe := createTestRecipe(t, db, user, "Sample", repository.RecipeLinks{})

	path := "uploads/recipe/1-abc.jpg"
	if err := db.SetRecipeImage(context.Background(), user.ID, recipe.ID, path); err != nil {
		t.Fatalf("SetRecipeImage() error = %v", err)
	}

	got, err := db.GetRecipe(context.Background(), user.ID, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe() error = %v", err)
	}
	if got.Image != path {
		t.Errorf("Image = %q, want %q", got.Image, path)
	}
}

func TestDeleteRecipe_RemovesLinksNotLabels(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "usman@gmail.com")
	tag := createTestTag(t, db, user, "Vegan")
	recipe := createTestRecipe(t, db, user, "Sample", repository.RecipeLinks{TagIDs: []int64{tag.ID}})

	if err := db.DeleteRecipe(context.Background(), user.ID, recipe.ID); err != nil {
		t.Fatalf("DeleteRecipe() error = %v", err)
	}

	if _, err := db.GetRecipe(context.Background(), user.ID, recipe.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetRecipe() after delete error = %v, want ErrNotFound", err)
	}

	tags, err := db.ListTags(context.Background(), user.ID, repository.LabelFilter{})
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 1 {
		t.Errorf("len(tags) = %d, want 1 (tag survives recipe deletion)", len(tags))
	}

	if err := db.DeleteRecipe(context.Background(), user.ID, recipe.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteRecipe() error = %v, want ErrNotFound", err)
	}
}

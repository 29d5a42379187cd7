package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
)

func tagNames(tags []model.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

func TestTagService_Create(t *testing.T) {
	f := newRecipeFixture(t)

	tag, err := f.tags.Create(context.Background(), f.owner.ID, "  Vegan ")
	require.NoError(t, err)
	assert.NotZero(t, tag.ID)
	assert.Equal(t, "Vegan", tag.Name)
	assert.Equal(t, "Vegan", tag.String())
}

func TestTagService_CreateInvalidName(t *testing.T) {
	f := newRecipeFixture(t)

	for _, name := range []string{"", "   ", strings.Repeat("a", MaxNameLength+1)} {
		_, err := f.tags.Create(context.Background(), f.owner.ID, name)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	}
}

func TestTagService_NameLengthCountsCharacters(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	tag, err := f.tags.Create(ctx, f.owner.ID, strings.Repeat("é", MaxNameLength))
	require.NoError(t, err)
	assert.Equal(t, MaxNameLength, utf8.RuneCountInString(tag.Name))

	_, err = f.ingredients.Create(ctx, f.owner.ID, strings.Repeat("日", 200))
	require.NoError(t, err)

	_, err = f.tags.Create(ctx, f.owner.ID, strings.Repeat("é", MaxNameLength+1))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestTagService_ListIsOwnerScopedAndOrdered(t *testing.T) {
	f := newRecipeFixture(t)
	other := f.createUser(t, "other@example.com")

	f.createTag(t, f.owner, "Dessert")
	f.createTag(t, f.owner, "Vegan")
	f.createTag(t, other, "Fruity")

	tags, err := f.tags.List(context.Background(), f.owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vegan", "Dessert"}, tagNames(tags))
}

func TestTagService_ListAssignedOnly(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	breakfast := f.createTag(t, f.owner, "Breakfast")
	f.createTag(t, f.owner, "Lunch")

	_, err := f.recipes.Create(ctx, f.owner.ID, RecipeInput{
		Title:       ptr("Eggs benedict"),
		TimeMinutes: ptr(30),
		Price:       ptr(price("5.00")),
		TagIDs:      []int64{breakfast.ID},
	})
	require.NoError(t, err)
	_, err = f.recipes.Create(ctx, f.owner.ID, RecipeInput{
		Title:       ptr("Porridge"),
		TimeMinutes: ptr(3),
		Price:       ptr(price("2.00")),
		TagIDs:      []int64{breakfast.ID},
	})
	require.NoError(t, err)

	tags, err := f.tags.List(ctx, f.owner.ID, true)
	require.NoError(t, err)
	require.Len(t, tags, 1, "assigned tags must be de-duplicated")
	assert.Equal(t, breakfast.ID, tags[0].ID)
}

func TestIngredientService_CreateAndList(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	other := f.createUser(t, "other@example.com")

	kale, err := f.ingredients.Create(ctx, f.owner.ID, "Kale")
	require.NoError(t, err)
	f.createIngredient(t, f.owner, "Salt")
	f.createIngredient(t, other, "Vinegar")

	_, err = f.ingredients.Create(ctx, f.owner.ID, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	all, err := f.ingredients.List(ctx, f.owner.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Salt", all[0].Name)
	assert.Equal(t, "Kale", all[1].Name)

	_, err = f.recipes.Create(ctx, f.owner.ID, RecipeInput{
		Title:         ptr("Kale chips"),
		TimeMinutes:   ptr(20),
		Price:         ptr(price("3.50")),
		IngredientIDs: []int64{kale.ID},
	})
	require.NoError(t, err)

	assigned, err := f.ingredients.List(ctx, f.owner.ID, true)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, kale.ID, assigned[0].ID)
}

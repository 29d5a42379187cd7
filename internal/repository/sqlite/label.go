package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
)

var (
	_ repository.TagRepository        = (*DB)(nil)
	_ repository.IngredientRepository = (*DB)(nil)
)

// labelTable describes one of the two "label" tables. Tags and ingredients
// share a shape (id, user_id, name) and a link-table layout, so the SQL is
// written once and parameterised by table names. The names are constants
// below, never user input, which is what makes the Sprintf safe.
type labelTable struct {
	resource   string // for error messages: "tag", "ingredient"
	table      string // "tags"
	linkTable  string // "recipe_tags"
	linkColumn string // "tag_id"
}

var (
	tagsTable = labelTable{
		resource:   "tag",
		table:      "tags",
		linkTable:  "recipe_tags",
		linkColumn: "tag_id",
	}
	ingredientsTable = labelTable{
		resource:   "ingredient",
		table:      "ingredients",
		linkTable:  "recipe_ingredients",
		linkColumn: "ingredient_id",
	}
)

type labelRow struct {
	ID     int64
	UserID string
	Name   string
}

func (db *DB) insertLabel(ctx context.Context, lt labelTable, userID, name string) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, name) VALUES (?, ?)`, lt.table),
		userID, name,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: creating %s: %w", lt.resource, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading %s id: %w", lt.resource, err)
	}
	return id, nil
}

// listLabels returns the owner's labels ordered by name descending.
//
// With AssignedOnly the EXISTS sub-select keeps labels linked to at least one
// recipe of the same owner. EXISTS (rather than a JOIN) means a label used by
// five recipes still appears once.
func (db *DB) listLabels(ctx context.Context, lt labelTable, ownerID string, filter repository.LabelFilter) ([]labelRow, error) {
	query := fmt.Sprintf(`SELECT l.id, l.user_id, l.name FROM %s l WHERE l.user_id = ?`, lt.table)
	args := []any{ownerID}

	if filter.AssignedOnly {
		query += fmt.Sprintf(`
			AND EXISTS (
				SELECT 1 FROM %s lk
				JOIN recipes r ON r.id = lk.recipe_id
				WHERE lk.%s = l.id AND r.user_id = ?
			)`, lt.linkTable, lt.linkColumn)
		args = append(args, ownerID)
	}
	query += ` ORDER BY l.name DESC, l.id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", lt.table, err)
	}
	defer rows.Close()

	var out []labelRow
	for rows.Next() {
		var r labelRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", lt.resource, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", lt.table, err)
	}
	return out, nil
}

// countOwned counts how many of ids exist in the table and belong to ownerID.
// Duplicate ids in the input are counted once.
func (db *DB) countOwned(ctx context.Context, lt labelTable, ownerID string, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ph, args := placeholders(ids)
	args = append([]any{ownerID}, args...)

	var n int
	err := db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = ? AND id IN (%s)`, lt.table, ph),
		args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting owned %s: %w", lt.table, err)
	}
	return n, nil
}

// =========================================================================
// TAGS
// =========================================================================

func (db *DB) CreateTag(ctx context.Context, tag *model.Tag) error {
	id, err := db.insertLabel(ctx, tagsTable, tag.UserID, tag.Name)
	if err != nil {
		return err
	}
	tag.ID = id
	return nil
}

func (db *DB) ListTags(ctx context.Context, ownerID string, filter repository.LabelFilter) ([]model.Tag, error) {
	rows, err := db.listLabels(ctx, tagsTable, ownerID, filter)
	if err != nil {
		return nil, err
	}
	tags := make([]model.Tag, 0, len(rows))
	for _, r := range rows {
		tags = append(tags, model.Tag{ID: r.ID, UserID: r.UserID, Name: r.Name})
	}
	return tags, nil
}

func (db *DB) CountOwnedTags(ctx context.Context, ownerID string, ids []int64) (int, error) {
	return db.countOwned(ctx, tagsTable, ownerID, ids)
}

// =========================================================================
// INGREDIENTS
// =========================================================================

func (db *DB) CreateIngredient(ctx context.Context, ingredient *model.Ingredient) error {
	id, err := db.insertLabel(ctx, ingredientsTable, ingredient.UserID, ingredient.Name)
	if err != nil {
		return err
	}
	ingredient.ID = id
	return nil
}

func (db *DB) ListIngredients(ctx context.Context, ownerID string, filter repository.LabelFilter) ([]model.Ingredient, error) {
	rows, err := db.listLabels(ctx, ingredientsTable, ownerID, filter)
	if err != nil {
		return nil, err
	}
	ingredients := make([]model.Ingredient, 0, len(rows))
	for _, r := range rows {
		ingredients = append(ingredients, model.Ingredient{ID: r.ID, UserID: r.UserID, Name: r.Name})
	}
	return ingredients, nil
}

func (db *DB) CountOwnedIngredients(ctx context.Context, ownerID string, ids []int64) (int, error) {
	return db.countOwned(ctx, ingredientsTable, ownerID, ids)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
)

var _ repository.RecipeRepository = (*DB)(nil)

const recipeColumns = `r.id, r.user_id, r.title, r.time_minutes, r.price, r.link, r.image, r.created_at, r.updated_at`

// CreateRecipe inserts the recipe and its tag/ingredient links in one
// transaction: either the recipe exists with all of its links or not at all.
func (db *DB) CreateRecipe(ctx context.Context, recipe *model.Recipe, links repository.RecipeLinks) error {
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (user_id, title, time_minutes, price, link, image, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.StringFixed(2),
			recipe.Link,
			recipe.Image,
			recipe.CreatedAt,
			recipe.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating recipe: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading recipe id: %w", err)
		}
		recipe.ID = id

		return replaceLinks(ctx, tx, recipe.ID, links)
	})
}

// GetRecipe loads one of the owner's recipes with its tags and ingredients.
// A recipe owned by someone else is reported as not found, never as forbidden,
// so ids of other users' recipes are not disclosed.
func (db *DB) GetRecipe(ctx context.Context, ownerID string, id int64) (*model.Recipe, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes r WHERE r.id = ? AND r.user_id = ?`,
		id, ownerID,
	)
	recipe, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlite: getting recipe %d: %w", id, err)
	}

	recipes := []model.Recipe{*recipe}
	if err := loadLinks(ctx, db.conn, recipes); err != nil {
		return nil, err
	}
	return &recipes[0], nil
}

// ListRecipes returns the owner's recipes, newest first, narrowed by filter.
//
// Each id filter becomes an EXISTS sub-select against the link table, so a
// recipe carrying two of the requested tags is still returned once, and the
// tag filter and ingredient filter combine with AND.
func (db *DB) ListRecipes(ctx context.Context, ownerID string, filter repository.RecipeFilter) ([]model.Recipe, error) {
	var (
		where = []string{"r.user_id = ?"}
		args  = []any{ownerID}
	)
	if len(filter.TagIDs) > 0 {
		ph, ids := placeholders(filter.TagIDs)
		where = append(where, `EXISTS (SELECT 1 FROM recipe_tags rt
			WHERE rt.recipe_id = r.id AND rt.tag_id IN (`+ph+`))`)
		args = append(args, ids...)
	}
	if len(filter.IngredientIDs) > 0 {
		ph, ids := placeholders(filter.IngredientIDs)
		where = append(where, `EXISTS (SELECT 1 FROM recipe_ingredients ri
			WHERE ri.recipe_id = r.id AND ri.ingredient_id IN (`+ph+`))`)
		args = append(args, ids...)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes r
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY r.id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recipes: %w", err)
	}

	recipes := []model.Recipe{}
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning recipe row: %w", err)
		}
		recipes = append(recipes, *recipe)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating recipes: %w", err)
	}
	// Close before loading links: the pool has a single connection.
	rows.Close()

	if err := loadLinks(ctx, db.conn, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// UpdateRecipe writes the scalar columns and replaces whichever link sets are
// non-nil in links.
func (db *DB) UpdateRecipe(ctx context.Context, recipe *model.Recipe, links repository.RecipeLinks) error {
	recipe.UpdatedAt = time.Now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE recipes
			 SET title = ?, time_minutes = ?, price = ?, link = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.StringFixed(2),
			recipe.Link,
			recipe.UpdatedAt,
			recipe.ID,
			recipe.UserID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating recipe %d: %w", recipe.ID, err)
		}
		if err := expectOneRow(result, "recipe", recipe.ID); err != nil {
			return err
		}
		return replaceLinks(ctx, tx, recipe.ID, links)
	})
}

// SetRecipeImage stores (or clears, with "") the image path of a recipe.
func (db *DB) SetRecipeImage(ctx context.Context, ownerID string, id int64, image string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE recipes SET image = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		image, time.Now(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting image of recipe %d: %w", id, err)
	}
	return expectOneRow(result, "recipe", id)
}

// DeleteRecipe removes the recipe; ON DELETE CASCADE removes its link rows.
func (db *DB) DeleteRecipe(ctx context.Context, ownerID string, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM recipes WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting recipe %d: %w", id, err)
	}
	return expectOneRow(result, "recipe", id)
}

// =========================================================================
// HELPERS
// =========================================================================

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(s rowScanner) (*model.Recipe, error) {
	var (
		r     model.Recipe
		price string
	)
	err := s.Scan(
		&r.ID,
		&r.UserID,
		&r.Title,
		&r.TimeMinutes,
		&price,
		&r.Link,
		&r.Image,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing price %q of recipe %d: %w", price, r.ID, err)
	}
	r.Tags = []model.Tag{}
	r.Ingredients = []model.Ingredient{}
	return &r, nil
}

func expectOneRow(result sql.Result, resource string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// replaceLinks swaps the link rows of a recipe. A nil id slice means
// "leave as is"; an empty non-nil slice clears the links.
func replaceLinks(ctx context.Context, q querier, recipeID int64, links repository.RecipeLinks) error {
	if links.TagIDs != nil {
		if err := replaceLinkRows(ctx, q, tagsTable, recipeID, links.TagIDs); err != nil {
			return err
		}
	}
	if links.IngredientIDs != nil {
		if err := replaceLinkRows(ctx, q, ingredientsTable, recipeID, links.IngredientIDs); err != nil {
			return err
		}
	}
	return nil
}

func replaceLinkRows(ctx context.Context, q querier, lt labelTable, recipeID int64, ids []int64) error {
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE recipe_id = ?`, lt.linkTable), recipeID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing %s of recipe %d: %w", lt.table, recipeID, err)
	}
	for _, id := range ids {
		if _, err := q.ExecContext(ctx,
			fmt.Sprintf(`INSERT OR IGNORE INTO %s (recipe_id, %s) VALUES (?, ?)`, lt.linkTable, lt.linkColumn),
			recipeID, id,
		); err != nil {
			return fmt.Errorf("sqlite: linking %s %d to recipe %d: %w", lt.resource, id, recipeID, err)
		}
	}
	return nil
}

// loadLinks fills Tags and Ingredients of every recipe with two queries in
// total, whatever the number of recipes.
func loadLinks(ctx context.Context, q querier, recipes []model.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	index := make(map[int64]int, len(recipes))
	ids := make([]int64, 0, len(recipes))
	for i, r := range recipes {
		index[r.ID] = i
		ids = append(ids, r.ID)
	}

	tagRows, err := linkedLabels(ctx, q, tagsTable, ids)
	if err != nil {
		return err
	}
	for _, lr := range tagRows {
		r := &recipes[index[lr.recipeID]]
		r.Tags = append(r.Tags, model.Tag{ID: lr.ID, UserID: lr.UserID, Name: lr.Name})
	}

	ingredientRows, err := linkedLabels(ctx, q, ingredientsTable, ids)
	if err != nil {
		return err
	}
	for _, lr := range ingredientRows {
		r := &recipes[index[lr.recipeID]]
		r.Ingredients = append(r.Ingredients, model.Ingredient{ID: lr.ID, UserID: lr.UserID, Name: lr.Name})
	}
	return nil
}

type linkedLabel struct {
	labelRow
	recipeID int64
}

func linkedLabels(ctx context.Context, q querier, lt labelTable, recipeIDs []int64) ([]linkedLabel, error) {
	ph, args := placeholders(recipeIDs)
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf(`SELECT lk.recipe_id, l.id, l.user_id, l.name
			FROM %s lk JOIN %s l ON l.id = lk.%s
			WHERE lk.recipe_id IN (%s)
			ORDER BY l.id`, lt.linkTable, lt.table, lt.linkColumn, ph),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading %s of recipes: %w", lt.table, err)
	}
	defer rows.Close()

	var out []linkedLabel
	for rows.Next() {
		var ll linkedLabel
		if err := rows.Scan(&ll.recipeID, &ll.ID, &ll.UserID, &ll.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s link: %w", lt.resource, err)
		}
		out = append(out, ll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s links: %w", lt.resource, err)
	}
	return out, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // driver for migrations
	"github.com/mealbook/recipes_api/internal/pkg/config"
	"github.com/mealbook/recipes_api/internal/pkg/pgtools"
	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	repo "github.com/mealbook/recipes_api/internal/recipes/repository/reciperepo"
	"github.com/shopspring/decimal"
)

type RecipesPostgresRepo struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, cfg config.PostgresDB) (RecipesPostgresRepo, error) {
	connString := "postgres://" + cfg.Username + ":" + cfg.Password + "@" +
		cfg.Addr + "/" + cfg.DB + "?" + "sslmode=" + cfg.SSLmode + "&pool_max_conns=" + cfg.MaxConns

	db, err := pgtools.Connect(ctx, connString)
	if err != nil {
		return RecipesPostgresRepo{}, fmt.Errorf("connect to db error: %w", err)
	}

	if err := pgtools.ApplyMigration(cfg); err != nil {
		return RecipesPostgresRepo{}, fmt.Errorf("apply migration error: %w", err)
	}

	return RecipesPostgresRepo{
		db: db,
	}, nil
}

func (rr RecipesPostgresRepo) CreateRecipe(ctx context.Context, //nolint:nonamedreturns
	recipe models.Recipe, tagNames []string,
) (r models.Recipe, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "create")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Insert("recipes").
		Columns("user_id", "title", "description", "time_minutes", "price", "link").
		Values(recipe.UserID, recipe.Title, recipe.Description,
			recipe.TimeMinutes, recipe.Price.String(), recipe.Link).
		Suffix("RETURNING id, created_at, updated_at").ToSql()
	if err != nil {
		return models.Recipe{}, fmt.Errorf("to sql error: %w", err)
	}

	row := tx.QueryRow(ctx, query, args...)

	if err = row.Scan(&recipe.ID, &recipe.CreatedAt, &recipe.UpdatedAt); err != nil {
		return models.Recipe{}, fmt.Errorf("scan error: %w", err)
	}

	tags, err := resolveTags(ctx, tx, recipe.UserID, tagNames)
	if err != nil {
		return models.Recipe{}, err
	}

	if err = replaceAssociations(ctx, tx, recipe.ID, tags); err != nil {
		return models.Recipe{}, err
	}

	recipe.Tags = tags

	return recipe, nil
}

// UpdateRecipe persists the full state of an owned recipe. tagNames nil
// leaves associations untouched; an empty slice clears them.
func (rr RecipesPostgresRepo) UpdateRecipe(ctx context.Context, //nolint:nonamedreturns
	recipe models.Recipe, tagNames []string,
) (r models.Recipe, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update("recipes").
		Set("title", recipe.Title).
		Set("description", recipe.Description).
		Set("time_minutes", recipe.TimeMinutes).
		Set("price", recipe.Price.String()).
		Set("link", recipe.Link).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": recipe.ID, "user_id": recipe.UserID}).ToSql()
	if err != nil {
		return models.Recipe{}, fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return models.Recipe{}, repo.ErrNotFound
	}

	if tagNames == nil {
		recipe.Tags, err = tagsForRecipe(ctx, tx, recipe.ID)
		if err != nil {
			return models.Recipe{}, err
		}

		return recipe, nil
	}

	tags, err := resolveTags(ctx, tx, recipe.UserID, tagNames)
	if err != nil {
		return models.Recipe{}, err
	}

	if err = replaceAssociations(ctx, tx, recipe.ID, tags); err != nil {
		return models.Recipe{}, err
	}

	recipe.Tags = tags

	return recipe, nil
}

func (rr RecipesPostgresRepo) DeleteRecipe(ctx context.Context, userID, recipeID int64) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("recipes").
		Where(squirrel.Eq{"id": recipeID, "user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	return nil
}

func (rr RecipesPostgresRepo) GetRecipe(ctx context.Context, //nolint:nonamedreturns
	userID, recipeID int64,
) (r models.Recipe, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "get")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("id", "user_id", "title", "description",
		"time_minutes", "price::text", "link", "image_key", "created_at", "updated_at").
		From("recipes").
		Where(squirrel.Eq{"id": recipeID, "user_id": userID}).ToSql()
	if err != nil {
		return models.Recipe{}, fmt.Errorf("to sql error: %w", err)
	}

	recipe, err := scanRecipe(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Recipe{}, repo.ErrNotFound
		}

		return models.Recipe{}, err
	}

	recipe.Tags, err = tagsForRecipe(ctx, tx, recipe.ID)
	if err != nil {
		return models.Recipe{}, err
	}

	return recipe, nil
}

func (rr RecipesPostgresRepo) ListRecipes(ctx context.Context, //nolint:nonamedreturns
	req repo.ListRecipesRequest,
) (recipes []models.Recipe, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "list")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Select("r.id", "r.user_id", "r.title", "r.description",
		"r.time_minutes", "r.price::text", "r.link", "r.image_key", "r.created_at", "r.updated_at").
		Distinct().
		From("recipes r").
		Where(squirrel.Eq{"r.user_id": req.UserID}).
		OrderBy("r.id DESC")

	if len(req.TagIDs) != 0 {
		sb = sb.Join("recipe_tags rt ON rt.recipe_id = r.id").
			Where("rt.tag_id = ANY(?)", req.TagIDs)
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	recipes = make([]models.Recipe, 0, 10) //nolint:gomnd

	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}

		recipes = append(recipes, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachTags(ctx, tx, recipes); err != nil {
		return nil, err
	}

	return recipes, nil
}

func (rr RecipesPostgresRepo) ListTags(ctx context.Context, //nolint:nonamedreturns
	req repo.ListTagsRequest,
) (tags []models.Tag, err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "list tags")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sb := psql.Select("t.id", "t.user_id", "t.name").
		Distinct().
		From("tags t").
		Where(squirrel.Eq{"t.user_id": req.UserID}).
		OrderBy("t.name DESC")

	// Assignment is judged against the requesting user's recipes only.
	switch req.Assigned {
	case repo.AssignmentAssigned:
		sb = sb.Join("recipe_tags rt ON rt.tag_id = t.id").
			Join("recipes r ON r.id = rt.recipe_id").
			Where(squirrel.Eq{"r.user_id": req.UserID})
	case repo.AssignmentUnassigned:
		sb = sb.LeftJoin("recipe_tags rt ON rt.tag_id = t.id").
			Where("rt.recipe_id IS NULL")
	case repo.AssignmentAll:
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	tags = make([]models.Tag, 0, 10) //nolint:gomnd

	for rows.Next() {
		var t models.Tag

		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		tags = append(tags, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tags, nil
}

func (rr RecipesPostgresRepo) UpdateTag(ctx context.Context, tag models.Tag) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "update tag")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update("tags").
		Set("name", tag.Name).
		Where(squirrel.Eq{"id": tag.ID, "user_id": tag.UserID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrTagNotFound
	}

	return nil
}

func (rr RecipesPostgresRepo) DeleteTag(ctx context.Context, userID, tagID int64) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "delete tag")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("tags").
		Where(squirrel.Eq{"id": tagID, "user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrTagNotFound
	}

	return nil
}

func (rr RecipesPostgresRepo) SetRecipeImage(ctx context.Context, userID, recipeID int64, imageKey string) (err error) {
	tx, err := rr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction error: %w", err)
	}

	defer func() {
		err = pgtools.CommitOrRollback(ctx, tx, err, "set image")
	}()

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Update("recipes").
		Set("image_key", imageKey).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": recipeID, "user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	return nil
}

func (rr RecipesPostgresRepo) Shutdown(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		rr.db.Close()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("context error: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// resolveTags finds or creates every named tag for the user in one statement
// per name. The ON CONFLICT upsert keeps find-or-create atomic, so two
// concurrent requests creating the same name converge on a single row.
func resolveTags(ctx context.Context, tx pgx.Tx, userID int64, names []string) ([]models.Tag, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	tags := make([]models.Tag, 0, len(names))

	for _, name := range names {
		query, args, err := psql.Insert("tags").
			Columns("user_id", "name").
			Values(userID, name).
			Suffix("ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name RETURNING id").ToSql()
		if err != nil {
			return nil, fmt.Errorf("to sql error: %w", err)
		}

		t := models.Tag{UserID: userID, Name: name} //nolint:exhaustruct

		if err := tx.QueryRow(ctx, query, args...).Scan(&t.ID); err != nil {
			return nil, fmt.Errorf("resolve tag scan error: %w", err)
		}

		tags = append(tags, t)
	}

	return tags, nil
}

func replaceAssociations(ctx context.Context, tx pgx.Tx, recipeID int64, tags []models.Tag) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Delete("recipe_tags").
		Where(squirrel.Eq{"recipe_id": recipeID}).ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	if len(tags) == 0 {
		return nil
	}

	ib := psql.Insert("recipe_tags").Columns("recipe_id", "tag_id")
	for _, t := range tags {
		ib = ib.Values(recipeID, t.ID)
	}

	query, args, err = ib.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("exec error: %w", err)
	}

	return nil
}

func tagsForRecipe(ctx context.Context, tx pgx.Tx, recipeID int64) ([]models.Tag, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("t.id", "t.user_id", "t.name").
		From("recipe_tags rt").
		Join("tags t ON t.id = rt.tag_id").
		Where(squirrel.Eq{"rt.recipe_id": recipeID}).
		OrderBy("t.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	tags := make([]models.Tag, 0, 4) //nolint:gomnd

	for rows.Next() {
		var t models.Tag

		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		tags = append(tags, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tags, nil
}

func attachTags(ctx context.Context, tx pgx.Tx, recipes []models.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(recipes))
	byID := make(map[int64]*models.Recipe, len(recipes))

	for i := range recipes {
		recipes[i].Tags = make([]models.Tag, 0, 4) //nolint:gomnd
		ids = append(ids, recipes[i].ID)
		byID[recipes[i].ID] = &recipes[i]
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	query, args, err := psql.Select("rt.recipe_id", "t.id", "t.user_id", "t.name").
		From("recipe_tags rt").
		Join("tags t ON t.id = rt.tag_id").
		Where("rt.recipe_id = ANY(?)", ids).
		OrderBy("t.id ASC").ToSql()
	if err != nil {
		return fmt.Errorf("to sql error: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			recipeID int64
			t        models.Tag
		)

		if err := rows.Scan(&recipeID, &t.ID, &t.UserID, &t.Name); err != nil {
			return fmt.Errorf("scan error: %w", err)
		}

		if r, ok := byID[recipeID]; ok {
			r.Tags = append(r.Tags, t)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (models.Recipe, error) {
	var (
		r        models.Recipe
		priceStr string
	)

	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description,
		&r.TimeMinutes, &priceStr, &r.Link, &r.ImageKey, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("scan error: %w", err)
	}

	r.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("parse price error: %w", err)
	}

	return r, nil
}

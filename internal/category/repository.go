package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var ErrNameTaken = errors.New("category name already exists")

func (r *Repository) List(ctx context.Context, userID string) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM categories
		WHERE user_id = $1
		ORDER BY name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

func (r *Repository) Create(ctx context.Context, userID string, input CategoryInput) (Category, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Category{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	c := Category{
		ID:        id.String(),
		UserID:    userID,
		Name:      input.Name,
		Color:     input.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, name) DO NOTHING
	`, c.ID, c.UserID, c.Name, c.Color, now)
	if err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Category{}, fmt.Errorf("insert category rows affected: %w", err)
	}
	if affected == 0 {
		return Category{}, ErrNameTaken
	}

	return c, nil
}

func (r *Repository) Update(ctx context.Context, userID, id string, input CategoryInput) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $3, color = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, color, created_at, updated_at
	`, id, userID, input.Name, input.Color, time.Now().UTC()).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, err
		}
		return Category{}, fmt.Errorf("update category: %w", err)
	}

	return c, nil
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

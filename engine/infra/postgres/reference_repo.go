package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mpdriver/mpdriver/engine/reference"
)

// ReferenceRepo loads entries of the lst reference table.
type ReferenceRepo struct {
	db DB
}

func NewReferenceRepo(db DB) *ReferenceRepo {
	return &ReferenceRepo{db: db}
}

func (r *ReferenceRepo) LoadCode(ctx context.Context, id int64) (string, error) {
	query, args, err := squirrel.Select("lst_name_sh").
		From("lst").
		Where(squirrel.Eq{"id_lst": id}).
		Where("lst_del = 0").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build reference code query: %w", err)
	}
	var code string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", reference.ErrUnknown
		}
		return "", fmt.Errorf("load reference code %d: %w", id, err)
	}
	return code, nil
}

func (r *ReferenceRepo) LoadID(ctx context.Context, code string) (int64, error) {
	query, args, err := squirrel.Select("id_lst").
		From("lst").
		Where(squirrel.Eq{"lst_name_sh": code}).
		Where("lst_del = 0").
		OrderBy("id_lst").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reference id query: %w", err)
	}
	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, reference.ErrUnknown
		}
		return 0, fmt.Errorf("load reference id %q: %w", code, err)
	}
	return id, nil
}

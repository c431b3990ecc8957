package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/minimart/apiserver/types"
)

// ResetTokenRepository handles persistence for password reset tokens.
type ResetTokenRepository struct {
	db *sql.DB
}

func NewResetTokenRepository(db *sql.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, token types.ResetToken) (types.ResetToken, error) {
	token.CreatedAt = time.Now()

	const query = `
		INSERT INTO reset_tokens (email, token, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		token.Email,
		token.Token,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	).Scan(&token.ID); err != nil {
		return types.ResetToken{}, err
	}
	return token, nil
}

func (r *ResetTokenRepository) GetByToken(ctx context.Context, token string) (types.ResetToken, error) {
	const query = `
		SELECT id, email, token, expires_at, used, created_at
		FROM reset_tokens
		WHERE token = $1`
	var rt types.ResetToken
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rt.ID,
		&rt.Email,
		&rt.Token,
		&rt.ExpiresAt,
		&rt.Used,
		&rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ResetToken{}, ErrNotFound
		}
		return types.ResetToken{}, err
	}
	return rt, nil
}

func (r *ResetTokenRepository) MarkUsed(ctx context.Context, token string) error {
	const query = `UPDATE reset_tokens SET used = TRUE WHERE token = $1`
	result, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

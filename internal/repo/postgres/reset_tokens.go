package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/observability"
	"github.com/tingyu91/snsjf/internal/security"
)

type ResetTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewResetTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *ResetTokensRepo {
	return &ResetTokensRepo{pool: pool, prom: prom}
}

func (r *ResetTokensRepo) Create(ctx context.Context, t user.ResetToken) error {
	err := r.prom.ObserveDB("reset_tokens.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.UsedAt, t.CreatedAt,
		)
		return err
	})

	return apperr.Store("reset_tokens.create", err)
}

// ResetPassword locks the token row, checks it and swaps the user's password
// in one transaction, so concurrent resets with the same token cannot both
// succeed.
func (r *ResetTokensRepo) ResetPassword(ctx context.Context, tokenID, tokenHash, hash, salt string, now time.Time) (userID string, err error) {
	if uuid.Validate(tokenID) != nil {
		return "", user.ErrResetTokenInvalid
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", apperr.Store("reset_tokens.begin", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	t, err := getForUpdate(ctx, tx, r.prom, tokenID)
	if err != nil {
		return "", err
	}

	if !t.Usable(now) || !security.ConstantTimeEqual(t.TokenHash, tokenHash) {
		err = user.ErrResetTokenInvalid
		return "", err
	}

	if err = updatePassword(ctx, tx, r.prom, t.UserID, hash, salt, now); err != nil {
		return "", err
	}

	err = r.prom.ObserveDB("reset_tokens.mark_used", func() error {
		_, err := tx.Exec(ctx, `UPDATE password_reset_tokens SET used_at = $2 WHERE id = $1`, tokenID, now)
		return err
	})
	if err != nil {
		err = apperr.Store("reset_tokens.mark_used", err)
		return "", err
	}

	if err = tx.Commit(ctx); err != nil {
		err = apperr.Store("reset_tokens.commit", err)
		return "", err
	}

	return t.UserID, nil
}

func getForUpdate(ctx context.Context, tx pgx.Tx, prom *observability.Prom, id string) (user.ResetToken, error) {
	var t user.ResetToken

	err := prom.ObserveDB("reset_tokens.get_for_update", func() error {
		return tx.QueryRow(ctx, `
			SELECT id, user_id, token_hash, expires_at, used_at, created_at
			FROM password_reset_tokens
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(
			&t.ID,
			&t.UserID,
			&t.TokenHash,
			&t.ExpiresAt,
			&t.UsedAt,
			&t.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ResetToken{}, user.ErrResetTokenInvalid
		}
		return user.ResetToken{}, apperr.Store("reset_tokens.get_for_update", err)
	}
	return t, nil
}

func updatePassword(ctx context.Context, db dbtx, prom *observability.Prom, id, hash, salt string, at time.Time) error {
	var affected int64

	err := prom.ObserveDB("users.update_password", func() error {
		tag, err := db.Exec(ctx,
			`UPDATE users
			SET password_hash = $2, salt = $3, password_updated_at = $4, updated_at = NOW()
			WHERE id = $1`,
			id, hash, salt, at,
		)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return apperr.Store("users.update_password", err)
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

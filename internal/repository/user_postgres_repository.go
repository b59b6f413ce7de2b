package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nurkhatq/connect/internal/model"
)

const userColumns = `id, telegram_id, username, first_name, last_name, level, points, is_active, created_at`

// PostgresUserRepository is the UserStore used when DATABASE_URL is set.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func scanUser(row pgx.Row, u *model.User, extra ...any) error {
	dest := []any{&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.Level, &u.Points, &u.IsActive, &u.CreatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *PostgresUserRepository) UpsertTelegramUser(ctx context.Context, tu model.TelegramUser) (*model.User, bool, error) {
	u := &model.User{}
	var created bool
	// xmax is 0 only for a freshly inserted row.
	err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (id, telegram_id, username, first_name, last_name)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (telegram_id) DO UPDATE SET
		     username   = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
		     first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
		     last_name  = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name)
		 RETURNING `+userColumns+`, (xmax = 0)`,
		uuid.New().String(), tu.ID, tu.Username, tu.FirstName, tu.LastName,
	), u, &created)
	if err != nil {
		return nil, false, fmt.Errorf("upsert user: %w", err)
	}
	return u, created, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u := &model.User{}
	err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), u)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecordResult inserts the result and updates points and level in one
// transaction. The user row is locked so concurrent completions add up.
func (r *PostgresUserRepository) RecordResult(ctx context.Context, res model.TestResult, levelFor func(points int) int) (*model.User, error) {
	u := &model.User{}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := scanUser(tx.QueryRow(ctx,
			`UPDATE users SET points = points + $2 WHERE id = $1 RETURNING `+userColumns,
			res.UserID, res.PointsEarned,
		), u)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if lvl := levelFor(u.Points); lvl > u.Level {
			if _, err := tx.Exec(ctx, `UPDATE users SET level = $2 WHERE id = $1`, u.ID, lvl); err != nil {
				return err
			}
			u.Level = lvl
		}

		createdAt := res.CreatedAt
		if createdAt.IsZero() {
			_, err = tx.Exec(ctx,
				`INSERT INTO test_results (user_id, test_id, session_id, percentage, passed, points_earned)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				res.UserID, res.TestID, res.SessionID, res.Percentage, res.Passed, res.PointsEarned,
			)
		} else {
			_, err = tx.Exec(ctx,
				`INSERT INTO test_results (user_id, test_id, session_id, percentage, passed, points_earned, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				res.UserID, res.TestID, res.SessionID, res.Percentage, res.Passed, res.PointsEarned, createdAt,
			)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("record result: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) Results(ctx context.Context, userID, testID string) ([]model.TestResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, test_id, session_id, percentage, passed, points_earned, created_at
		 FROM test_results
		 WHERE user_id = $1 AND test_id = $2
		 ORDER BY created_at DESC, id DESC`,
		userID, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TestResult
	for rows.Next() {
		var res model.TestResult
		if err := rows.Scan(&res.UserID, &res.TestID, &res.SessionID, &res.Percentage, &res.Passed, &res.PointsEarned, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PostgresUserRepository) BestScores(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT test_id, MAX(percentage) FROM test_results WHERE user_id = $1 GROUP BY test_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	best := make(map[string]float64)
	for rows.Next() {
		var testID string
		var pct float64
		if err := rows.Scan(&testID, &pct); err != nil {
			return nil, err
		}
		best[testID] = pct
	}
	return best, rows.Err()
}

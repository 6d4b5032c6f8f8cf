package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/adityarao312/feednest/internal/feednest"
)

const userNamespace = "-usr"

func (r Repo) InsertUser(ctx context.Context, username, email, passwordHash string) (feednest.User, error) {
	const q = `INSERT INTO users (id, username, email, password_hash)
	VALUES (?, ?, ?, ?);`

	id := uuid.NewString() + userNamespace
	_, err := r.db.ExecContext(ctx, q, id, username, email, passwordHash)
	if isUniqueViolation(err) {
		return feednest.User{}, fmt.Errorf("user already exists: %w", feednest.ErrConflict)
	}
	if err != nil {
		return feednest.User{}, fmt.Errorf("error inserting user: %s", err)
	}

	return r.User(ctx, id)
}

func (r Repo) User(ctx context.Context, id string) (feednest.User, error) {
	const q = `SELECT * FROM users WHERE id = ?;`

	var usr feednest.User
	err := r.db.GetContext(ctx, &usr, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return feednest.User{}, feednest.ErrNotFound
	}
	if err != nil {
		return feednest.User{}, fmt.Errorf("error fetching user: %s", err)
	}

	return usr, nil
}

func (r Repo) UserByEmail(ctx context.Context, email string) (feednest.User, error) {
	const q = `SELECT * FROM users WHERE email = ?;`

	var usr feednest.User
	err := r.db.GetContext(ctx, &usr, q, email)
	if errors.Is(err, sql.ErrNoRows) {
		return feednest.User{}, feednest.ErrNotFound
	}
	if err != nil {
		return feednest.User{}, fmt.Errorf("error fetching user: %s", err)
	}

	return usr, nil
}

func (r Repo) UpdateUser(ctx context.Context, id string, args feednest.UpdateUserArgs) error {
	q := sq.Update("users")
	if args.FullName != "" {
		q = q.Set("full_name", args.FullName)
	}
	if args.Gender != "" {
		q = q.Set("gender", args.Gender)
	}
	if args.Age != nil {
		q = q.Set("age", *args.Age)
	}
	if args.AvatarURL != nil {
		q = q.Set("avatar_url", *args.AvatarURL)
	}
	if args.PasswordHash != "" {
		q = q.Set("password_hash", args.PasswordHash)
	}
	q = q.Set("updated_at", time.Now().UTC())
	q = q.Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, qArgs...); err != nil {
		return fmt.Errorf("error executing user update: %s", err)
	}

	return nil
}

// UpdateUserRefreshToken overwrites the user's stored refresh token. Passing
// nil clears it, which logs the user out everywhere.
func (r Repo) UpdateUserRefreshToken(ctx context.Context, id string, token *string) error {
	const q = `UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, token, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("error updating refresh token: %s", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return feednest.ErrNotFound
	}

	return nil
}

// DeleteUser removes the user along with their likes and subscriptions.
// Items the user read or synced stay around for other subscribers.
func (r Repo) DeleteUser(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %s", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM liked_items WHERE user_id = ?;`,
		`DELETE FROM liked_feeds WHERE user_id = ?;`,
		`DELETE FROM subscriptions WHERE user_id = ?;`,
		`DELETE FROM users WHERE id = ?;`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("error deleting user: %s", err)
		}
	}

	return tx.Commit()
}

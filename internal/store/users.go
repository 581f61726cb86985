package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"ideafeed/internal/models"
)

// CreateUser assigns the user an ID and creation timestamp and inserts it.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.ID = gonanoid.Must(idSize)
	u.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id,email,username,name,profession,avatar_url,password_hash,created_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.Username, u.Name, u.Profession, u.AvatarURL, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "users.username") {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	}
	return err
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,email,username,name,profession,avatar_url,password_hash,created_at
		 FROM users WHERE id = ?`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,email,username,name,profession,avatar_url,password_hash,created_at
		 FROM users WHERE email = ?`, email))
}

// SetAvatarURL updates the user's avatar reference after a blob upload.
func (s *Store) SetAvatarURL(ctx context.Context, userID, url string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET avatar_url = ? WHERE id = ?`, url, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Name, &u.Profession,
		&u.AvatarURL, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

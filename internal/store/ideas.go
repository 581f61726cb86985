package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"ideafeed/internal/models"
)

const ideaColumns = `i.id, i.author_id, i.headline, i.description, i.tags,
	i.like_count, i.comment_count, i.created_at,
	(SELECT COUNT(*) FROM clicks c WHERE c.idea_id = i.id)`

// CreateIdea assigns the idea an ID and server-side creation timestamp and
// inserts it. The timestamp is immutable afterwards; there is no edit or
// delete path for ideas.
func (s *Store) CreateIdea(ctx context.Context, idea *models.Idea) error {
	idea.ID = gonanoid.Must(idSize)
	idea.CreatedAt = time.Now().UTC()
	idea.Normalize(idea.CreatedAt)
	tags, err := json.Marshal(idea.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ideas(id,author_id,headline,description,tags,created_at) VALUES(?,?,?,?,?,?)`,
		idea.ID, idea.AuthorID, idea.Headline, idea.Description, string(tags), idea.CreatedAt)
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) IdeaByID(ctx context.Context, id string) (models.Idea, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ideaColumns+` FROM ideas i WHERE i.id = ?`, id)
	idea, err := s.scanIdea(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Idea{}, ErrNotFound
	}
	return idea, err
}

// ListIdeas returns every idea, newest first. This is the ordered query the
// feed snapshot is built from.
func (s *Store) ListIdeas(ctx context.Context) ([]models.Idea, error) {
	return s.queryIdeas(ctx,
		`SELECT `+ideaColumns+` FROM ideas i ORDER BY i.created_at DESC`)
}

// IdeasByAuthor returns the author's own ideas, newest first.
func (s *Store) IdeasByAuthor(ctx context.Context, authorID string) ([]models.Idea, error) {
	return s.queryIdeas(ctx,
		`SELECT `+ideaColumns+` FROM ideas i WHERE i.author_id = ? ORDER BY i.created_at DESC`,
		authorID)
}

// LikedIdeas returns the ideas a user has liked, newest first.
func (s *Store) LikedIdeas(ctx context.Context, userID string) ([]models.Idea, error) {
	return s.queryIdeas(ctx,
		`SELECT `+ideaColumns+` FROM ideas i
		 JOIN likes l ON l.idea_id = i.id AND l.user_id = ?
		 ORDER BY i.created_at DESC`, userID)
}

// Like records the (user, idea) like relation and increments the like
// counter in one transaction. The primary key on likes makes a double like
// fail atomically with ErrAlreadyLiked, leaving the counter untouched.
func (s *Store) Like(ctx context.Context, userID, ideaID string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO likes(user_id,idea_id,created_at) VALUES(?,?,?)`,
			userID, ideaID, time.Now().UTC())
		switch {
		case isUniqueViolation(err):
			return ErrAlreadyLiked
		case isForeignKeyViolation(err):
			return ErrNotFound
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ideas SET like_count = like_count + 1 WHERE id = ?`, ideaID)
		return err
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// Unlike removes the like relation and decrements the counter. Returns
// ErrNotLiked when no relation exists, so the counter never drifts below
// the true like count.
func (s *Store) Unlike(ctx context.Context, userID, ideaID string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = ? AND idea_id = ?`, userID, ideaID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotLiked
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ideas SET like_count = like_count - 1 WHERE id = ?`, ideaID)
		return err
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) HasLiked(ctx context.Context, userID, ideaID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM likes WHERE user_id = ? AND idea_id = ?`, userID, ideaID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CreateComment inserts the comment and increments the parent idea's comment
// counter in one transaction. Comments are not deletable, so there is no
// decrement path.
func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	c.ID = gonanoid.Must(idSize)
	c.CreatedAt = time.Now().UTC()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO comments(id,idea_id,author_id,content,created_at) VALUES(?,?,?,?,?)`,
			c.ID, c.IdeaID, c.AuthorID, c.Content, c.CreatedAt)
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ideas SET comment_count = comment_count + 1 WHERE id = ?`, c.IdeaID)
		return err
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) CommentsByIdea(ctx context.Context, ideaID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,idea_id,author_id,content,created_at FROM comments
		 WHERE idea_id = ? ORDER BY created_at`, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.IdeaID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// RecordClick adds the user to the idea's click set. The set only grows and
// holds each user at most once, so re-clicking is a no-op and the view
// metric counts distinct viewers, not view events.
func (s *Store) RecordClick(ctx context.Context, ideaID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clicks(idea_id,user_id,created_at) VALUES(?,?,?)
		 ON CONFLICT(idea_id,user_id) DO NOTHING`,
		ideaID, userID, time.Now().UTC())
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notify()
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) queryIdeas(ctx context.Context, query string, args ...any) ([]models.Idea, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ideas := []models.Idea{}
	for rows.Next() {
		idea, err := s.scanIdea(rows.Scan)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

func (s *Store) scanIdea(scan func(dest ...any) error) (models.Idea, error) {
	var idea models.Idea
	var tags string
	err := scan(&idea.ID, &idea.AuthorID, &idea.Headline, &idea.Description, &tags,
		&idea.Likes, &idea.Comments, &idea.CreatedAt, &idea.Clicks)
	if err != nil {
		return models.Idea{}, err
	}
	if err := json.Unmarshal([]byte(tags), &idea.Tags); err != nil {
		s.log.Warn("malformed tags on idea", zap.String("idea", idea.ID), zap.Error(err))
		idea.Tags = nil
	}
	idea.Normalize(time.Now().UTC())
	return idea, nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

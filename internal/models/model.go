package models

import "time"

// Idea is the core content unit in the feed. Counters are maintained by the
// store through relative deltas only; nothing outside the store writes them.
type Idea struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	AuthorID    string    `json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`
	Likes       int       `json:"likes"`
	Comments    int       `json:"comments"`
	// Clicks is the number of distinct users who have opened the idea.
	Clicks int `json:"clicks"`
}

// Normalize fills defaults for fields that may be absent or malformed in a
// stored record: nil tags, a zero timestamp, negative counters. Records are
// normalized once at the store boundary so downstream code never re-checks.
func (i *Idea) Normalize(now time.Time) {
	if i.Tags == nil {
		i.Tags = []string{}
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	if i.Likes < 0 {
		i.Likes = 0
	}
	if i.Comments < 0 {
		i.Comments = 0
	}
	if i.Clicks < 0 {
		i.Clicks = 0
	}
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Profession   string    `json:"profession"`
	AvatarURL    string    `json:"avatarUrl"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"ideaId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Like is the (user, idea) relation backing the like counter. Its existence
// is the source of truth for "has this user liked this idea".
type Like struct {
	UserID    string    `json:"userId"`
	IdeaID    string    `json:"ideaId"`
	CreatedAt time.Time `json:"createdAt"`
}

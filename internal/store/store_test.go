package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ideafeed/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func createUser(t *testing.T, s *Store, email, username string) models.User {
	t.Helper()
	u := models.User{
		Email:        email,
		Username:     username,
		Name:         "Test " + username,
		PasswordHash: "x",
	}
	require.NoError(t, s.CreateUser(context.Background(), &u))
	require.NotEmpty(t, u.ID)
	return u
}

func createIdea(t *testing.T, s *Store, authorID string, headline string, tags []string) models.Idea {
	t.Helper()
	idea := models.Idea{
		Headline:    headline,
		Description: "a description",
		Tags:        tags,
		AuthorID:    authorID,
	}
	require.NoError(t, s.CreateIdea(context.Background(), &idea))
	require.NotEmpty(t, idea.ID)
	return idea
}

func TestCreateUser_DuplicateEmailAndUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createUser(t, s, "a@example.com", "alice")

	dup := models.User{Email: "a@example.com", Username: "other", Name: "n", PasswordHash: "x"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrEmailTaken)

	dup = models.User{Email: "b@example.com", Username: "alice", Name: "n", PasswordHash: "x"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrUsernameTaken)
}

func TestNewIdea_StartsWithZeroCounters(t *testing.T) {
	s := newTestStore(t)
	u := createUser(t, s, "a@example.com", "alice")
	idea := createIdea(t, s, u.ID, "Robot Butler", []string{"robots"})

	got, err := s.IdeaByID(context.Background(), idea.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Likes)
	assert.Equal(t, 0, got.Comments)
	assert.Equal(t, 0, got.Clicks)
	assert.Equal(t, []string{"robots"}, got.Tags)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestIdeaByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.IdeaByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngagementScenario_LikeCommentTwoClicks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := createUser(t, s, "a@example.com", "alice")
	bob := createUser(t, s, "b@example.com", "bob")
	carol := createUser(t, s, "c@example.com", "carol")
	idea := createIdea(t, s, author.ID, "Robot Butler", nil)

	require.NoError(t, s.Like(ctx, bob.ID, idea.ID))
	comment := models.Comment{IdeaID: idea.ID, AuthorID: carol.ID, Content: "neat"}
	require.NoError(t, s.CreateComment(ctx, &comment))
	require.NoError(t, s.RecordClick(ctx, idea.ID, bob.ID))
	require.NoError(t, s.RecordClick(ctx, idea.ID, carol.ID))

	got, err := s.IdeaByID(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, 1, got.Comments)
	assert.Equal(t, 2, got.Clicks)
}

func TestLike_DoubleLikeRejectedWithoutCounterDrift(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := createUser(t, s, "a@example.com", "alice")
	bob := createUser(t, s, "b@example.com", "bob")
	idea := createIdea(t, s, author.ID, "Robot Butler", nil)

	require.NoError(t, s.Like(ctx, bob.ID, idea.ID))
	assert.ErrorIs(t, s.Like(ctx, bob.ID, idea.ID), ErrAlreadyLiked)

	got, err := s.IdeaByID(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
}

func TestLike_UnknownIdea(t *testing.T) {
	s := newTestStore(t)
	bob := createUser(t, s, "b@example.com", "bob")
	assert.ErrorIs(t, s.Like(context.Background(), bob.ID, "missing"), ErrNotFound)
}

func TestUnlike_NetZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := createUser(t, s, "a@example.com", "alice")
	bob := createUser(t, s, "b@example.com", "bob")
	idea := createIdea(t, s, author.ID, "Robot Butler", nil)

	require.NoError(t, s.Like(ctx, bob.ID, idea.ID))
	liked, err := s.HasLiked(ctx, bob.ID, idea.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	require.NoError(t, s.Unlike(ctx, bob.ID, idea.ID))
	liked, err = s.HasLiked(ctx, bob.ID, idea.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	got, err := s.IdeaByID(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Likes)

	assert.ErrorIs(t, s.Unlike(ctx, bob.ID, idea.ID), ErrNotLiked)
}

func TestRecordClick_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := createUser(t, s, "a@example.com", "alice")
	bob := createUser(t, s, "b@example.com", "bob")
	idea := createIdea(t, s, author.ID, "Robot Butler", nil)

	require.NoError(t, s.RecordClick(ctx, idea.ID, bob.ID))
	require.NoError(t, s.RecordClick(ctx, idea.ID, bob.ID))
	require.NoError(t, s.RecordClick(ctx, idea.ID, bob.ID))

	got, err := s.IdeaByID(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Clicks)
}

func TestListIdeas_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	u := createUser(t, s, "a@example.com", "alice")
	first := createIdea(t, s, u.ID, "first", nil)
	second := createIdea(t, s, u.ID, "second", nil)

	ideas, err := s.ListIdeas(context.Background())
	require.NoError(t, err)
	require.Len(t, ideas, 2)
	// Same-instant timestamps are possible with a coarse clock; accept either
	// order then, but newest must come first when times differ.
	if !ideas[0].CreatedAt.Equal(ideas[1].CreatedAt) {
		assert.Equal(t, second.ID, ideas[0].ID)
		assert.Equal(t, first.ID, ideas[1].ID)
	}
	assert.True(t, !ideas[0].CreatedAt.Before(ideas[1].CreatedAt))
}

func TestLikedIdeasAndIdeasByAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "a@example.com", "alice")
	bob := createUser(t, s, "b@example.com", "bob")
	mine := createIdea(t, s, alice.ID, "mine", nil)
	other := createIdea(t, s, bob.ID, "other", nil)

	require.NoError(t, s.Like(ctx, alice.ID, other.ID))

	byAuthor, err := s.IdeasByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, mine.ID, byAuthor[0].ID)

	liked, err := s.LikedIdeas(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, other.ID, liked[0].ID)
}

func TestCreateComment_IncrementsCounterAndLists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "a@example.com", "alice")
	idea := createIdea(t, s, alice.ID, "topic", nil)

	c1 := models.Comment{IdeaID: idea.ID, AuthorID: alice.ID, Content: "one"}
	require.NoError(t, s.CreateComment(ctx, &c1))
	c2 := models.Comment{IdeaID: idea.ID, AuthorID: alice.ID, Content: "two"}
	require.NoError(t, s.CreateComment(ctx, &c2))

	got, err := s.IdeaByID(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Comments)

	comments, err := s.CommentsByIdea(ctx, idea.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "one", comments[0].Content)
	assert.Equal(t, "two", comments[1].Content)

	missing := models.Comment{IdeaID: "missing", AuthorID: alice.ID, Content: "x"}
	assert.ErrorIs(t, s.CreateComment(ctx, &missing), ErrNotFound)
}

func TestOnChange_FiresOnMutationsOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "a@example.com", "alice")
	bob := createUser(t, s, "b@example.com", "bob")

	var fired int
	s.OnChange(func() { fired++ })

	idea := createIdea(t, s, alice.ID, "topic", nil) // +1
	require.NoError(t, s.Like(ctx, bob.ID, idea.ID)) // +1
	require.NoError(t, s.RecordClick(ctx, idea.ID, bob.ID)) // +1
	require.NoError(t, s.RecordClick(ctx, idea.ID, bob.ID)) // duplicate, no fire
	assert.ErrorIs(t, s.Like(ctx, bob.ID, idea.ID), ErrAlreadyLiked) // rejected, no fire

	_, err := s.ListIdeas(ctx) // read, no fire
	require.NoError(t, err)

	assert.Equal(t, 3, fired)
}

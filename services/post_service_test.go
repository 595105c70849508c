package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/storage"
	"github.com/cppla/blogapi/utils"
)

const twoMB = 2000000

type postFixture struct {
	svc   *PostService
	posts *fakePostStore
	users *fakeUserStore
	files *fakeFiles
	alice uint
	bob   uint
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	f := &postFixture{posts: newFakePostStore(), users: newFakeUserStore(), files: newFakeFiles()}
	ctx := context.Background()
	alice := models.User{Name: "alice", Email: "alice@example.com"}
	bob := models.User{Name: "bob", Email: "bob@example.com"}
	require.NoError(t, f.users.Create(ctx, &alice))
	require.NoError(t, f.users.Create(ctx, &bob))
	f.alice, f.bob = alice.ID, bob.ID
	f.svc = NewPostService(f.posts, f.users, f.files, nil, twoMB)
	return f
}

func validInput() PostInput {
	return PostInput{Title: "Harvest notes", Category: "Agriculture", Description: "A long enough description of the harvest."}
}

func (f *postFixture) create(t *testing.T, owner uint) *models.Post {
	t.Helper()
	post, err := f.svc.Create(context.Background(), owner, validInput(), upload("field.jpg", 128))
	require.NoError(t, err)
	return post
}

func idOf(p *models.Post) string { return strconv.FormatUint(uint64(p.ID), 10) }

func assertKind(t *testing.T, err error, kind utils.ErrorKind) *utils.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	return appErr
}

func TestPostService_Create_StoresPostAndIncrementsCounter(t *testing.T) {
	f := newPostFixture(t)

	post := f.create(t, f.alice)

	assert.NotZero(t, post.ID)
	assert.Equal(t, f.alice, post.Creator)
	assert.Equal(t, "Agriculture", post.Category)
	assert.True(t, strings.HasPrefix(post.Thumbnail, "field"))
	assert.True(t, strings.HasSuffix(post.Thumbnail, ".jpg"))
	assert.True(t, f.files.has(post.Thumbnail))
	assert.Equal(t, 1, f.users.posts(f.alice))
	assert.Equal(t, 0, f.users.posts(f.bob))

	in := validInput()
	got, err := f.svc.Get(context.Background(), idOf(post))
	require.NoError(t, err)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Category, got.Category)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, post.Thumbnail, got.Thumbnail)
}

func TestPostService_Create_RoundTripsPlainText(t *testing.T) {
	f := newPostFixture(t)
	in := PostInput{
		Title:       "Q&A: what's \"next\"",
		Category:    "Business",
		Description: `It's "fine" & dandy, 5 < 6`,
	}

	post, err := f.svc.Create(context.Background(), f.alice, in, upload("a.png", 10))
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), idOf(post))
	require.NoError(t, err)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Description, got.Description)
}

func TestPostService_Create_MarkupOnlyTitleIsMissing(t *testing.T) {
	f := newPostFixture(t)
	in := validInput()
	in.Title = "<b></b>"

	_, err := f.svc.Create(context.Background(), f.alice, in, upload("a.png", 10))

	assertKind(t, err, utils.KindValidation)
	assert.Equal(t, 0, f.files.count())
}

func TestPostService_Create_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		input PostInput
		file  *Upload
	}{
		{"missing title", PostInput{Category: "Art", Description: "some description here"}, upload("a.png", 10)},
		{"missing category", PostInput{Title: "t", Description: "some description here"}, upload("a.png", 10)},
		{"missing description", PostInput{Title: "t", Category: "Art"}, upload("a.png", 10)},
		{"missing thumbnail", validInput(), nil},
		{"whitespace only", PostInput{Title: "   ", Category: "Art", Description: "some description here"}, upload("a.png", 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPostFixture(t)
			_, err := f.svc.Create(context.Background(), f.alice, tt.input, tt.file)
			appErr := assertKind(t, err, utils.KindValidation)
			assert.Equal(t, "Fill in all fields and choose thumbnail.", appErr.Message)
			assert.Equal(t, 0, f.files.count())
			assert.Empty(t, f.posts.posts)
			assert.Equal(t, 0, f.users.posts(f.alice))
		})
	}
}

func TestPostService_Create_InvalidCategory(t *testing.T) {
	f := newPostFixture(t)
	in := validInput()
	in.Category = "Gossip"

	_, err := f.svc.Create(context.Background(), f.alice, in, upload("a.png", 10))

	assertKind(t, err, utils.KindValidation)
	assert.Equal(t, 0, f.files.count())
}

func TestPostService_Create_ThumbnailTooLarge(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Create(context.Background(), f.alice, validInput(), upload("big.jpg", twoMB+1))

	appErr := assertKind(t, err, utils.KindPayloadTooLarge)
	assert.Equal(t, "Thumbnail too big. File should be less than 2mb.", appErr.Message)
	assert.Empty(t, f.posts.posts)
	assert.Equal(t, 0, f.files.count())
	assert.Equal(t, 0, f.users.posts(f.alice))
}

func TestPostService_Create_ExactLimitAccepted(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Create(context.Background(), f.alice, validInput(), upload("edge.jpg", twoMB))

	require.NoError(t, err)
}

func TestPostService_Create_UndeclaredSizeStillLimited(t *testing.T) {
	f := newPostFixture(t)
	u := upload("big.jpg", twoMB+10)
	u.Size = -1

	_, err := f.svc.Create(context.Background(), f.alice, validInput(), u)

	assertKind(t, err, utils.KindPayloadTooLarge)
}

func TestPostService_Create_StoreFailure(t *testing.T) {
	f := newPostFixture(t)
	f.files.saveErr = errBoom

	_, err := f.svc.Create(context.Background(), f.alice, validInput(), upload("a.png", 10))

	assertKind(t, err, utils.KindStorage)
	assert.Empty(t, f.posts.posts)
	assert.Equal(t, 0, f.users.posts(f.alice))
}

func TestPostService_Create_RecordFailureDiscardsFile(t *testing.T) {
	f := newPostFixture(t)
	f.posts.createErr = errBoom

	_, err := f.svc.Create(context.Background(), f.alice, validInput(), upload("a.png", 10))

	assertKind(t, err, utils.KindUnhandled)
	assert.Equal(t, 0, f.files.count())
	assert.Equal(t, 0, f.users.posts(f.alice))
}

func TestPostService_Create_CounterFailureIsNotFatal(t *testing.T) {
	f := newPostFixture(t)
	f.users.incrementErr = errBoom

	post, err := f.svc.Create(context.Background(), f.alice, validInput(), upload("a.png", 10))

	require.NoError(t, err)
	assert.NotZero(t, post.ID)
}

func TestPostService_Create_SanitizesText(t *testing.T) {
	f := newPostFixture(t)
	in := PostInput{
		Title:       "<b>Bold</b> title",
		Category:    "Art",
		Description: `<p>hello world</p><script>alert(1)</script>`,
	}

	post, err := f.svc.Create(context.Background(), f.alice, in, upload("a.png", 10))

	require.NoError(t, err)
	assert.Equal(t, "Bold title", post.Title)
	assert.Contains(t, post.Description, "<p>hello world</p>")
	assert.NotContains(t, post.Description, "script")
}

func TestPostService_Get_NotFound(t *testing.T) {
	f := newPostFixture(t)

	for _, raw := range []string{"", "abc", "0", "999"} {
		_, err := f.svc.Get(context.Background(), raw)
		appErr := assertKind(t, err, utils.KindNotFound)
		assert.Equal(t, "Post not found.", appErr.Message)
	}
}

func TestPostService_List_OrderedByUpdatedAt(t *testing.T) {
	f := newPostFixture(t)
	first := f.create(t, f.alice)
	second := f.create(t, f.bob)

	// editing the older post moves it to the top of the feed
	_, err := f.svc.Edit(context.Background(), f.alice, idOf(first), validInput(), nil)
	require.NoError(t, err)

	posts, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, first.ID, posts[0].ID)
	assert.Equal(t, second.ID, posts[1].ID)
}

func TestPostService_List_Empty(t *testing.T) {
	f := newPostFixture(t)

	posts, err := f.svc.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestPostService_ListByCategory(t *testing.T) {
	f := newPostFixture(t)
	f.create(t, f.alice)
	art := validInput()
	art.Category = "Art"
	artPost, err := f.svc.Create(context.Background(), f.bob, art, upload("a.png", 10))
	require.NoError(t, err)

	posts, err := f.svc.ListByCategory(context.Background(), "Art")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, artPost.ID, posts[0].ID)

	posts, err = f.svc.ListByCategory(context.Background(), "Weather")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostService_ListByCreator_OrderedByCreatedAt(t *testing.T) {
	f := newPostFixture(t)
	first := f.create(t, f.alice)
	second := f.create(t, f.alice)
	f.create(t, f.bob)

	// updating does not change creator ordering
	_, err := f.svc.Edit(context.Background(), f.alice, idOf(first), validInput(), nil)
	require.NoError(t, err)

	posts, err := f.svc.ListByCreator(context.Background(), strconv.Itoa(int(f.alice)))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestPostService_ListByCreator_InvalidID(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.ListByCreator(context.Background(), "nope")

	appErr := assertKind(t, err, utils.KindValidation)
	assert.Equal(t, 400, appErr.Status)
}

func TestPostService_Edit_UpdatesFieldsKeepsThumbnail(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)
	in := PostInput{Title: "New title", Category: "Weather", Description: "Rain expected all week long."}

	updated, err := f.svc.Edit(context.Background(), f.alice, idOf(post), in, nil)

	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "Weather", updated.Category)
	assert.Equal(t, post.Thumbnail, updated.Thumbnail)
	assert.True(t, f.files.has(post.Thumbnail))
}

func TestPostService_Edit_ReplacesThumbnail(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)

	updated, err := f.svc.Edit(context.Background(), f.alice, idOf(post), validInput(), upload("new.png", 64))

	require.NoError(t, err)
	assert.NotEqual(t, post.Thumbnail, updated.Thumbnail)
	assert.True(t, f.files.has(updated.Thumbnail))
	assert.False(t, f.files.has(post.Thumbnail))
	assert.Equal(t, 1, f.files.count())
}

func TestPostService_Edit_OldFileRemovalFailureIsNotFatal(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)
	f.files.mu.Lock()
	delete(f.files.files, post.Thumbnail)
	f.files.mu.Unlock()

	updated, err := f.svc.Edit(context.Background(), f.alice, idOf(post), validInput(), upload("new.png", 64))

	require.NoError(t, err)
	assert.True(t, f.files.has(updated.Thumbnail))
}

func TestPostService_Edit_UpdateFailureKeepsOldFile(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)
	f.posts.updateErr = errBoom

	_, err := f.svc.Edit(context.Background(), f.alice, idOf(post), validInput(), upload("new.png", 64))

	assertKind(t, err, utils.KindUnhandled)
	assert.True(t, f.files.has(post.Thumbnail))
	assert.Equal(t, 1, f.files.count())
}

func TestPostService_Edit_NonOwnerForbidden(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)
	in := PostInput{Title: "Hijacked", Category: "Art", Description: "Not my post but trying anyway."}

	_, err := f.svc.Edit(context.Background(), f.bob, idOf(post), in, upload("x.png", 10))

	assertKind(t, err, utils.KindForbidden)
	stored, err := f.svc.Get(context.Background(), idOf(post))
	require.NoError(t, err)
	assert.Equal(t, post.Title, stored.Title)
	assert.Equal(t, post.Thumbnail, stored.Thumbnail)
	assert.Equal(t, 1, f.files.count())
}

func TestPostService_Edit_Validation(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)

	tests := []struct {
		name    string
		input   PostInput
		message string
	}{
		{"missing title", PostInput{Category: "Art", Description: "long enough text"}, "Fill in all fields."},
		{"missing category", PostInput{Title: "t", Description: "long enough text"}, "Fill in all fields."},
		{"short description", PostInput{Title: "t", Category: "Art", Description: "too short"}, "Description must be at least 12 characters."},
		{"bad category", PostInput{Title: "t", Category: "Nope", Description: "long enough text"}, "Invalid category."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Edit(context.Background(), f.alice, idOf(post), tt.input, nil)
			appErr := assertKind(t, err, utils.KindValidation)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestPostService_Edit_ShortDescriptionCountsTypedCharacters(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)

	// 10 runes as typed; escaping must not lengthen it past the minimum
	_, err := f.svc.Edit(context.Background(), f.alice, idOf(post), PostInput{Title: "t", Category: "Art", Description: "It's a & b"}, nil)

	appErr := assertKind(t, err, utils.KindValidation)
	assert.Equal(t, "Description must be at least 12 characters.", appErr.Message)
	stored, err := f.svc.Get(context.Background(), idOf(post))
	require.NoError(t, err)
	assert.Equal(t, post.Description, stored.Description)
}

func TestPostService_Edit_RoundTripsPlainText(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)
	in := PostInput{Title: "Rock & roll", Category: "Entertainment", Description: "Don't stop & don't look back"}

	_, err := f.svc.Edit(context.Background(), f.alice, idOf(post), in, nil)
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), idOf(post))
	require.NoError(t, err)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Description, got.Description)
}

func TestPostService_Edit_DescriptionOfExactlyTwelveCharacters(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)

	_, err := f.svc.Edit(context.Background(), f.alice, idOf(post), PostInput{Title: "t", Category: "Art", Description: "123456789012"}, nil)

	require.NoError(t, err)
}

func TestPostService_Edit_MissingPost(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Edit(context.Background(), f.alice, "42", validInput(), nil)
	assertKind(t, err, utils.KindNotFound)

	_, err = f.svc.Edit(context.Background(), f.alice, "", validInput(), nil)
	appErr := assertKind(t, err, utils.KindValidation)
	assert.Equal(t, "Post unavailable.", appErr.Message)
}

func TestPostService_Delete_RemovesPostFileAndCounter(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)
	require.Equal(t, 1, f.users.posts(f.alice))

	res, err := f.svc.Delete(context.Background(), f.alice, idOf(post))

	require.NoError(t, err)
	assert.Equal(t, post.ID, res.ID)
	assert.Equal(t, "Post "+idOf(post)+" deleted successfully.", res.Message)
	assert.False(t, f.files.has(post.Thumbnail))
	assert.Equal(t, 0, f.users.posts(f.alice))
	_, err = f.svc.Get(context.Background(), idOf(post))
	assertKind(t, err, utils.KindNotFound)
}

func TestPostService_Delete_NonOwnerForbidden(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)

	_, err := f.svc.Delete(context.Background(), f.bob, idOf(post))

	assertKind(t, err, utils.KindForbidden)
	assert.True(t, f.files.has(post.Thumbnail))
	assert.Equal(t, 1, f.users.posts(f.alice))
}

func TestPostService_Delete_FileRemovalFailureIsNotFatal(t *testing.T) {
	f := newPostFixture(t)
	post := f.create(t, f.alice)
	f.files.removeErr = errBoom

	_, err := f.svc.Delete(context.Background(), f.alice, idOf(post))

	require.NoError(t, err)
	assert.Empty(t, f.posts.posts)
	assert.Equal(t, 0, f.users.posts(f.alice))
}

func TestPostService_Delete_Missing(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Delete(context.Background(), f.alice, "7")
	assertKind(t, err, utils.KindNotFound)

	_, err = f.svc.Delete(context.Background(), f.alice, "")
	appErr := assertKind(t, err, utils.KindValidation)
	assert.Equal(t, 400, appErr.Status)
}

func TestPostService_Create_WithDownscaler(t *testing.T) {
	f := newPostFixture(t)
	f.svc = NewPostService(f.posts, f.users, f.files, storage.Downscaler{MaxWidth: 100}, twoMB)

	// not an image, so it is stored unchanged
	post, err := f.svc.Create(context.Background(), f.alice, validInput(), upload("notes.txt", 32))

	require.NoError(t, err)
	obj, err := f.files.Open(context.Background(), post.Thumbnail)
	require.NoError(t, err)
	defer obj.Body.Close()
	assert.Equal(t, int64(32), obj.Size)
}

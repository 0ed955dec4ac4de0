package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/api/apitest"
	"github.com/tweetapp/tweetapp/pkg/toast"
)

var bob = api.User{UserID: "bob", Username: "bob"}

func newTestEngine(t *testing.T, mem *apitest.Memory, scope Scope, opts ...EngineOption) *Engine {
	t.Helper()
	base := []EngineOption{
		WithIdentity(func() *api.User { u := bob; return &u }),
		WithToasts(toast.NewNotifier(toast.WithDurationScale(0))),
	}
	e := NewEngine(mem, scope, append(base, opts...)...)
	t.Cleanup(e.Quiesce)
	return e
}

func postByID(t *testing.T, e *Engine, postID string) api.Post {
	t.Helper()
	for _, p := range e.Posts().Get() {
		if p.PostID == postID {
			return p
		}
	}
	t.Fatalf("post %s not in engine state", postID)
	return api.Post{}
}

func TestLoadOrdersNewestFirst(t *testing.T) {
	now := time.Now()
	mem := apitest.NewMemory(apitest.WithSeed([]api.Post{
		{PostID: "old", UserID: "bob", CreatedAt: now.Add(-3 * time.Hour)},
		{PostID: "new", UserID: "bob", CreatedAt: now.Add(-time.Minute)},
		{PostID: "mid", UserID: "bob", CreatedAt: now.Add(-time.Hour)},
	}))
	e := newTestEngine(t, mem, All())

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	posts := e.Posts().Get()
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if posts[i].PostID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, posts[i].PostID)
		}
	}
	if e.ErrorMessage().Get() != "" {
		t.Errorf("unexpected error message %q", e.ErrorMessage().Get())
	}
}

func TestLoadScopeByAuthor(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, ByAuthor("alex"))

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	posts := e.Posts().Get()
	if len(posts) != 1 || posts[0].PostID != "post-2" {
		t.Fatalf("expected only alex's post-2, got %+v", posts)
	}
}

func TestLoadScopeSingle(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, Single("post-1"))

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	posts := e.Posts().Get()
	if len(posts) != 1 || posts[0].PostID != "post-1" {
		t.Fatalf("expected exactly post-1, got %+v", posts)
	}
}

func TestLoadTransportFailureKeepsState(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	mem.FailNext(api.OpListPosts, errors.New("connection refused"))
	if err := e.Load(context.Background()); err == nil {
		t.Fatal("expected transport error from load")
	}

	if len(e.Posts().Get()) != 2 {
		t.Error("failed reload must not clear the current list")
	}
	if e.ErrorMessage().Get() != "Failed to load posts" {
		t.Errorf("unexpected error message %q", e.ErrorMessage().Get())
	}
	if e.Loading().Get() {
		t.Error("loading flag stuck after failure")
	}
}

func TestToggleLikePublishesOptimisticallyThenReconciles(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	release := mem.Gate(api.OpToggleLike)

	if !e.ToggleLike(context.Background(), "post-2") {
		t.Fatal("toggle refused")
	}

	// The optimistic like is visible before the gateway call completes.
	if p := postByID(t, e, "post-2"); !p.LikedBy("bob") {
		t.Fatal("expected optimistic like published immediately")
	}
	if pending, _ := e.PendingLikes().GetKey("post-2"); !pending {
		t.Error("expected post-2 marked pending")
	}

	release()
	e.Quiesce()

	if p := postByID(t, e, "post-2"); !p.LikedBy("bob") {
		t.Error("expected reconciled state to keep the like")
	}
	if e.PendingLikes().Len() != 0 {
		t.Error("pending flag not cleared after settlement")
	}
}

func TestReconciliationAdoptsServerTruthOverGuess(t *testing.T) {
	// The engine guesses on behalf of zoe, but the backend attributes the
	// toggle to its own authenticated identity. The server's answer wins.
	mem := apitest.NewMemory(apitest.WithIdentity(api.User{UserID: "jane", Username: "jane"}))
	zoe := api.User{UserID: "zoe", Username: "zoe"}
	e := newTestEngine(t, mem, All(), WithIdentity(func() *api.User { return &zoe }))
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !e.ToggleLike(context.Background(), "post-2") {
		t.Fatal("toggle refused")
	}
	e.Quiesce()

	p := postByID(t, e, "post-2")
	if p.LikedBy("zoe") {
		t.Error("optimistic guess survived reconciliation")
	}
	if !p.LikedBy("jane") {
		t.Error("server's version of the like set was not adopted")
	}
}

func TestToggleLikeRollsBackOnTransportFailure(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	before := postByID(t, e, "post-1")

	mem.FailNext(api.OpToggleLike, errors.New("connection reset"))
	if !e.ToggleLike(context.Background(), "post-1") {
		t.Fatal("toggle refused")
	}
	e.Quiesce()

	after := postByID(t, e, "post-1")
	if len(after.Likes) != len(before.Likes) || after.LikedBy("bob") {
		t.Errorf("expected rollback to pre-toggle state, got %+v", after.Likes)
	}
	if e.PendingLikes().Len() != 0 {
		t.Error("pending flag not cleared after rollback")
	}
}

func TestToggleLikeRefusedWhilePending(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	release := mem.Gate(api.OpToggleLike)

	if !e.ToggleLike(context.Background(), "post-1") {
		t.Fatal("first toggle refused")
	}
	if e.ToggleLike(context.Background(), "post-1") {
		t.Error("second toggle accepted while first still pending")
	}
	// A different post is its own admission lane.
	if !e.ToggleLike(context.Background(), "post-2") {
		t.Error("toggle on another post refused")
	}

	release()
	e.Quiesce()

	if got := mem.Calls(api.OpToggleLike); got != 2 {
		t.Errorf("expected exactly 2 toggle calls, got %d", got)
	}
}

func TestToggleLikeRefusedSignedOut(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All(), WithIdentity(func() *api.User { return nil }))
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if e.ToggleLike(context.Background(), "post-1") {
		t.Error("toggle accepted while signed out")
	}
	if mem.Calls(api.OpToggleLike) != 0 {
		t.Error("signed-out toggle reached the gateway")
	}
}

func TestAddCommentValidationSkipsNetwork(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	long := make([]byte, api.MaxCommentContentLen+1)
	for i := range long {
		long[i] = 'x'
	}
	for _, content := range []string{"", "   ", string(long)} {
		if e.AddComment(context.Background(), "post-1", content) {
			t.Errorf("invalid comment %q accepted", content)
		}
	}
	if mem.Calls(api.OpAddComment) != 0 {
		t.Error("validation failure reached the gateway")
	}
	if msg, ok := e.CommentErrors().GetKey("post-1"); !ok || msg == "" {
		t.Error("expected a published validation message")
	}
}

func TestAddCommentAppearsAfterReconciliation(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, Single("post-2"))
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	release := mem.Gate(api.OpAddComment)
	if !e.AddComment(context.Background(), "post-2", "first!") {
		t.Fatal("comment refused")
	}

	// No local guess: the list is untouched while the call is in flight,
	// only the pending flag shows.
	if p := postByID(t, e, "post-2"); len(p.Comments) != 0 {
		t.Fatalf("comment appeared before the server confirmed: %+v", p.Comments)
	}
	if pending, _ := e.PendingComments().GetKey("post-2"); !pending {
		t.Error("expected post-2 marked comment-pending")
	}

	release()
	e.Quiesce()

	p := postByID(t, e, "post-2")
	if len(p.Comments) != 1 || p.Comments[0].Content != "first!" || p.Comments[0].UserID != "bob" {
		t.Errorf("expected the server's comment after re-fetch, got %+v", p.Comments)
	}
	if e.PendingComments().Len() != 0 {
		t.Error("comment pending flag not cleared")
	}
}

func TestAddCommentSoftFailureRecordsError(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	before := postByID(t, e, "post-1")

	mem.SoftFailNext(api.OpAddComment, "Post is locked", "")
	if !e.AddComment(context.Background(), "post-1", "too late") {
		t.Fatal("comment refused")
	}
	e.Quiesce()

	after := postByID(t, e, "post-1")
	if len(after.Comments) != len(before.Comments) {
		t.Errorf("expected comments untouched, got %d", len(after.Comments))
	}
	if msg, _ := e.CommentErrors().GetKey("post-1"); msg != "Post is locked" {
		t.Errorf("expected server message surfaced, got %q", msg)
	}
}

func TestAddCommentErrorClearedOnRetry(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	mem.FailNext(api.OpAddComment, errors.New("timeout"))
	if !e.AddComment(context.Background(), "post-1", "first try") {
		t.Fatal("comment refused")
	}
	e.Quiesce()
	if _, ok := e.CommentErrors().GetKey("post-1"); !ok {
		t.Fatal("expected an error after transport failure")
	}

	if !e.AddComment(context.Background(), "post-1", "second try") {
		t.Fatal("retry refused")
	}
	e.Quiesce()
	if msg, ok := e.CommentErrors().GetKey("post-1"); ok {
		t.Errorf("expected error cleared by the new attempt, still %q", msg)
	}
}

func TestCreatePostInsertsServerPostAtTop(t *testing.T) {
	mem := apitest.NewMemory()
	var resets int
	e := newTestEngine(t, mem, All(), OnComposerReset(func() { resets++ }))
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	release := mem.Gate(api.OpCreatePost)
	if !e.CreatePost(context.Background(), "  brand new post  ") {
		t.Fatal("create refused")
	}

	// The collection is untouched until the server answers.
	if got := len(e.Posts().Get()); got != 2 {
		t.Fatalf("expected 2 posts while creation in flight, got %d", got)
	}
	if !e.ComposerPending().Get() {
		t.Error("expected composer pending while in flight")
	}
	if e.CreatePost(context.Background(), "another one") {
		t.Error("second create accepted while first pending")
	}

	release()
	e.Quiesce()

	posts := e.Posts().Get()
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts after create, got %d", len(posts))
	}
	if posts[0].Content != "brand new post" || posts[0].UserID != "bob" {
		t.Errorf("expected the server's post at the top, got %+v", posts[0])
	}
	if resets != 1 {
		t.Errorf("expected composer reset once, got %d", resets)
	}
	if e.ComposerPending().Get() {
		t.Error("composer pending stuck after settlement")
	}
}

func TestCreatePostTransportFailureLeavesCollection(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	mem.FailNext(api.OpCreatePost, errors.New("broken pipe"))
	if !e.CreatePost(context.Background(), "doomed") {
		t.Fatal("create refused")
	}
	e.Quiesce()

	if got := len(e.Posts().Get()); got != 2 {
		t.Errorf("expected collection unchanged, got %d posts", got)
	}
	if e.ComposerError().Get() != "Failed to create post" {
		t.Errorf("unexpected composer error %q", e.ComposerError().Get())
	}
}

func TestCreatePostValidation(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	long := make([]byte, api.MaxPostContentLen+1)
	for i := range long {
		long[i] = 'y'
	}
	for _, content := range []string{"", "  ", string(long)} {
		if e.CreatePost(context.Background(), content) {
			t.Errorf("invalid post %q accepted", content)
		}
	}
	if mem.Calls(api.OpCreatePost) != 0 {
		t.Error("validation failure reached the gateway")
	}
	if e.ComposerError().Get() == "" {
		t.Error("expected a published validation message")
	}
}

func TestCreatePostRefusedOnSingleScope(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, Single("post-1"))
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if e.CreatePost(context.Background(), "no composer here") {
		t.Error("create accepted on a single-post engine")
	}
	if mem.Calls(api.OpCreatePost) != 0 {
		t.Error("single-scope create reached the gateway")
	}
	if e.ComposerPending().Get() {
		t.Error("composer pending set by a refused create")
	}
	if got := len(e.Posts().Get()); got != 1 {
		t.Errorf("expected the single post untouched, got %d posts", got)
	}
}

// A rollback that lost the race to a newer mutation on the same post must
// not be applied over the newer mutation's settled state.
func TestStaleRollbackDiscarded(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	mem.FailNext(api.OpToggleLike, errors.New("timeout"))
	release := mem.Gate(api.OpToggleLike)

	// The toggle blocks at the gateway and will eventually fail.
	if !e.ToggleLike(context.Background(), "post-2") {
		t.Fatal("toggle refused")
	}
	// Meanwhile a comment on the same post starts, succeeds and reconciles.
	if !e.AddComment(context.Background(), "post-2", "landed while like hung") {
		t.Fatal("comment refused")
	}
	waitForCalls(t, mem, api.OpGetPost, 1)

	release()
	e.Quiesce()

	// The toggle's rollback snapshot predates the comment; applying it
	// would erase a settled mutation.
	p := postByID(t, e, "post-2")
	if len(p.Comments) != 1 || p.Comments[0].Content != "landed while like hung" {
		t.Errorf("stale rollback erased a settled comment: %+v", p.Comments)
	}
}

func waitForCalls(t *testing.T, mem *apitest.Memory, op string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mem.Calls(op) >= want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %s calls", want, op)
}

func TestApplyRemoteAdoptsServerVersion(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Another client likes post-2 behind our back.
	if _, err := mem.ToggleLike(context.Background(), "post-2"); err != nil {
		t.Fatalf("store mutation failed: %v", err)
	}
	e.ApplyRemote(context.Background(), "post-2")

	if p := postByID(t, e, "post-2"); !p.LikedBy("bob") {
		t.Error("remote change not adopted")
	}
}

func TestCloseRefusesFurtherOperations(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	calls := mem.Calls(api.OpListPosts) + mem.Calls(api.OpGetPost)

	e.Close()

	if e.ToggleLike(context.Background(), "post-1") {
		t.Error("toggle accepted after close")
	}
	if e.AddComment(context.Background(), "post-1", "too late") {
		t.Error("comment accepted after close")
	}
	if e.CreatePost(context.Background(), "too late") {
		t.Error("create accepted after close")
	}
	if err := e.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from load, got %v", err)
	}
	e.ApplyRemote(context.Background(), "post-1")

	total := mem.Calls(api.OpListPosts) + mem.Calls(api.OpGetPost) +
		mem.Calls(api.OpToggleLike) + mem.Calls(api.OpAddComment) +
		mem.Calls(api.OpCreatePost)
	if total != calls {
		t.Errorf("closed engine still reached the gateway: %d calls before, %d after", calls, total)
	}
	// Closing twice is harmless.
	e.Close()
}

func TestCloseWaitsForInFlightWork(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	release := mem.Gate(api.OpToggleLike)
	if !e.ToggleLike(context.Background(), "post-2") {
		t.Fatal("toggle refused")
	}

	closed := make(chan struct{})
	go func() {
		e.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("close returned while a toggle was still in flight")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close did not return after the toggle settled")
	}

	// The in-flight toggle settled normally.
	if p := postByID(t, e, "post-2"); !p.LikedBy("bob") {
		t.Error("toggle lost during close")
	}
	if e.PendingLikes().Len() != 0 {
		t.Error("pending flag not cleared by settlement")
	}
}

func TestApplyRemoteRemovesMissingPost(t *testing.T) {
	mem := apitest.NewMemory()
	e := newTestEngine(t, mem, All())
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	mem.SetPosts(apitest.SeedPosts()[:1]) // post-2 deleted upstream
	e.ApplyRemote(context.Background(), "post-2")

	for _, p := range e.Posts().Get() {
		if p.PostID == "post-2" {
			t.Fatal("deleted post still present")
		}
	}
}

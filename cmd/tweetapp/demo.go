package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tweetapp/tweetapp/internal/config"
	"github.com/tweetapp/tweetapp/internal/pages"
	"github.com/tweetapp/tweetapp/pkg/api"
	"github.com/tweetapp/tweetapp/pkg/api/apitest"
	"github.com/tweetapp/tweetapp/pkg/session"
	"github.com/tweetapp/tweetapp/pkg/toast"
)

func demoCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk a scripted session against the backend",
		Long: `Run a scripted user session: sign in, load the feed, toggle a
like, add a comment, publish a post, sign out. Signal transitions are
printed as they fire, which makes the optimistic publish-then-settle
rhythm visible.

The backend is the in-memory simulator unless TWEETAPP_BACKEND=http,
in which case the gateway speaks to TWEETAPP_API_URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := cfg.Logger()
			return runDemo(cmd.Context(), cfg, username, log.With("cmd", "demo"))
		},
	}

	cmd.Flags().StringVar(&username, "user", "jane", "Username to sign in as")

	return cmd
}

func runDemo(ctx context.Context, cfg config.Config, username string, log *slog.Logger) error {
	var (
		sess    *session.Manager
		gateway api.Gateway
	)

	if cfg.Backend == config.BackendHTTP {
		gateway = api.NewClient(cfg.APIURL,
			api.WithTokenSource(api.TokenSourceFunc(func() string {
				if sess == nil {
					return ""
				}
				return sess.Token().Get()
			})),
			api.WithMetrics(api.NewMetrics()),
		)
	} else {
		gateway = apitest.NewMemory()
	}

	store := session.TokenStore(session.NewMemoryStore())
	if cfg.TokenDir != "" {
		store = session.NewFileStore(cfg.TokenDir)
	}
	sess = session.NewManager(gateway, session.WithStore(store))
	sess.Hydrate()

	toasts := toast.NewNotifier()
	toasts.Toasts().Subscribe(func(ts []toast.Toast) {
		for _, t := range ts {
			fmt.Printf("  [toast/%s] %s\n", t.Level, t.Message)
		}
	})

	if _, err := sess.Login(ctx, api.LoginRequest{Username: username, Password: "demo"}); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !sess.IsAuthenticated() {
		return fmt.Errorf("login rejected for %q", username)
	}
	log.Info("signed in", "user", username)

	feedPage := pages.NewFeed(gateway, sess, toasts)
	feedPage.Engine.Posts().Subscribe(func(posts []api.Post) {
		fmt.Printf("  [feed] %d posts\n", len(posts))
	})
	if err := feedPage.Load(ctx); err != nil {
		return fmt.Errorf("load feed: %w", err)
	}

	posts := feedPage.Engine.Posts().Get()
	if len(posts) > 0 {
		target := posts[len(posts)-1].PostID
		fmt.Printf("  liking %s (optimistic)\n", target)
		feedPage.ToggleLike(ctx, target)

		fmt.Printf("  commenting on %s\n", target)
		feedPage.AddComment(ctx, target, "hello from the demo")
	}

	feedPage.SetComposerText("posted by the scripted demo")
	feedPage.SubmitPost(ctx)

	feedPage.Close()
	log.Info("all mutations settled")

	sess.Logout()
	log.Info("signed out")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"finitefield.org/blog-admin/internal/admin/config"
	"finitefield.org/blog-admin/internal/admin/httpserver"
	"finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/blog-admin/internal/admin/i18n"
	"finitefield.org/blog-admin/internal/admin/metrics"
	"finitefield.org/blog-admin/internal/admin/observability"
	"finitefield.org/blog-admin/internal/admin/posts"
	"finitefield.org/blog-admin/internal/admin/registration"
	"finitefield.org/blog-admin/internal/admin/session"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.WithFile(*configPath))
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	bundle, err := i18n.Default(cfg.I18n.DefaultLocale)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	sessions, err := newSessionManager(cfg, logger)
	if err != nil {
		return err
	}

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.New(cfg.Metrics.Namespace)
	}

	providers := make([]registration.Provider, 0, len(cfg.Register.Providers))
	providerIDs := make([]string, 0, len(cfg.Register.Providers))
	providerURLs := make(map[string]string, len(cfg.Register.Providers))
	for _, p := range cfg.Register.Providers {
		providers = append(providers, registration.Provider{ID: p.ID, Label: p.Label})
		providerIDs = append(providerIDs, p.ID)
		if p.URL != "" {
			providerURLs[p.ID] = p.URL
		}
	}

	serverCfg := httpserver.Config{
		Address:          cfg.Server.Address,
		BasePath:         cfg.Server.BasePath,
		Environment:      cfg.Server.Environment,
		Sessions:         sessions,
		Bundle:           bundle,
		Logger:           logger,
		Metrics:          registry,
		Providers:        providers,
		CSRFCookieSecure: cfg.Session.Secure,
	}

	var app *firebase.App
	if cfg.Firebase.ProjectID != "" {
		app, err = newFirebaseApp(parent, cfg)
		if err != nil {
			return err
		}
		client, err := app.Auth(parent)
		if err != nil {
			return fmt.Errorf("initialise firebase auth client: %w", err)
		}
		serverCfg.Authenticator = middleware.NewFirebaseAuthenticator(client)
		serverCfg.Registrar = registration.NewFirebaseRegistrar(client, loginPath(cfg.Server.BasePath), providerURLs)
		logger.Info("firebase enabled", zap.String("project", cfg.Firebase.ProjectID))
	} else {
		memory := registration.NewMemoryRegistrar(0, providerIDs...)
		serverCfg.Registrar = memory
		serverCfg.Passwords = memory
		logger.Warn("FIREBASE_PROJECT_ID not set; using in-memory accounts and the development authenticator")
	}

	postsService, closePosts, err := newPostsService(parent, cfg, app)
	if err != nil {
		return err
	}
	defer closePosts()
	serverCfg.PostsService = postsService

	srv := httpserver.New(serverCfg)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("admin server listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("environment", cfg.Server.Environment),
		zap.String("version", version),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("admin server stopped")
	return nil
}

func newSessionManager(cfg config.Config, logger *zap.Logger) (*session.Manager, error) {
	hashKey := cfg.Session.DecodedHashKey()
	blockKey := cfg.Session.DecodedBlockKey()
	if len(hashKey) == 0 {
		logger.Warn("session keys not configured; generating ephemeral keys")
		hashKey = securecookie.GenerateRandomKey(32)
		blockKey = securecookie.GenerateRandomKey(32)
	}

	manager, err := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookieSecure: cfg.Session.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	return manager, nil
}

func newPostsService(ctx context.Context, cfg config.Config, app *firebase.App) (posts.Service, func(), error) {
	noop := func() {}
	switch cfg.Posts.ResolvedBackend() {
	case config.PostsBackendREST:
		service, err := posts.NewHTTPService(cfg.Posts.APIURL, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			return nil, noop, fmt.Errorf("posts api: %w", err)
		}
		return service, noop, nil
	case config.PostsBackendFirestore:
		if app == nil {
			return nil, noop, errors.New("posts: firestore backend requires firebase")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("initialise firestore client: %w", err)
		}
		service := posts.NewFirestoreService(client, posts.FirestoreConfig{Collection: cfg.Posts.FirestoreCollection})
		return service, func() { _ = client.Close() }, nil
	default:
		zap.L().Info("serving blog posts from memory")
		return posts.NewStaticService(), noop, nil
	}
}

func newFirebaseApp(ctx context.Context, cfg config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	return app, nil
}

func loginPath(basePath string) string {
	if basePath == "/" {
		return "/login"
	}
	return basePath + "/login"
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv())
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, "/admin", cfg.Server.BasePath)
	require.Equal(t, "local", cfg.Server.Environment)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "en", cfg.I18n.DefaultLocale)
	require.True(t, cfg.Metrics.Enabled)
	require.True(t, cfg.IsLocal())
	require.Empty(t, cfg.Posts.APIURL)
	require.Equal(t, PostsBackendMemory, cfg.Posts.ResolvedBackend())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9000"
  base_path: /console
log:
  format: console
posts:
  api_url: https://api.fake-rest.refine.dev
register:
  providers:
    - id: google
      label: Google
      url: https://accounts.example.com/google
metrics:
  enabled: false
`), 0o600))

	cfg, err := Load(WithFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"ADMIN_HTTP_ADDR":          ":9100",
		"ADMIN_DEFAULT_LOCALE":     "ja",
		"ADMIN_REGISTER_PROVIDERS": "google, github",
	}))
	require.NoError(t, err)

	require.Equal(t, ":9100", cfg.Server.Address)
	require.Equal(t, "/console", cfg.Server.BasePath)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, "ja", cfg.I18n.DefaultLocale)
	require.Equal(t, "https://api.fake-rest.refine.dev", cfg.Posts.APIURL)
	require.Equal(t, PostsBackendREST, cfg.Posts.ResolvedBackend())
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, []ProviderConfig{
		{ID: "google", Label: "Google", URL: "https://accounts.example.com/google"},
		{ID: "github"},
	}, cfg.Register.Providers)
}

func TestValidateJoinsErrors(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvMap(map[string]string{
		"ADMIN_ENV":               "production",
		"ADMIN_BASE_PATH":         "admin",
		"ADMIN_LOG_FORMAT":        "xml",
		"ADMIN_SESSION_BLOCK_KEY": "c2hvcnQ=",
		"ADMIN_POSTS_API_URL":     "not a url",
	}))
	require.ErrorIs(t, err, ErrInvalid)

	msg := err.Error()
	require.Contains(t, msg, "server.base_path")
	require.Contains(t, msg, "log.format")
	require.Contains(t, msg, "session.hash_key is required")
	require.Contains(t, msg, "session.block_key")
	require.Contains(t, msg, "posts.api_url")
}

func TestFirestoreBackendNeedsProject(t *testing.T) {
	cfg := Default()
	cfg.Posts.Backend = "firestore"
	require.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Firebase.ProjectID = "blog-admin-dev"
	require.NoError(t, cfg.Validate())

	cfg.Posts.Backend = "sqlite"
	require.ErrorContains(t, cfg.Validate(), "posts.backend")
}

func TestValidateRejectsDuplicateProviders(t *testing.T) {
	cfg := Default()
	cfg.Register.Providers = []ProviderConfig{{ID: "google"}, {ID: "google"}, {}}

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	require.Contains(t, err.Error(), `"google" is duplicated`)
	require.Contains(t, err.Error(), "register.providers[2].id is required")
}

func TestSessionKeysDecode(t *testing.T) {
	s := SessionConfig{
		HashKey:  "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=",
		BlockKey: "YWJjZGVmMDEyMzQ1Njc4OQ",
	}
	require.Equal(t, []byte("0123456789abcdef0123456789abcdef"), s.DecodedHashKey())
	require.Equal(t, []byte("abcdef0123456789"), s.DecodedBlockKey())
	require.Nil(t, SessionConfig{}.DecodedHashKey())
}

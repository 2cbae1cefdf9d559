package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gregjones/httpcache"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/auth"
	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/bitbucket"
	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/boltstore"
	githubadapter "github.com/ericfisherdev/bitbrowse/internal/adapter/driven/github"
	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/oauth"
	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/sealer"
	sqliteadapter "github.com/ericfisherdev/bitbrowse/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/bitbrowse/internal/adapter/driving/cli"
	"github.com/ericfisherdev/bitbrowse/internal/application"
	"github.com/ericfisherdev/bitbrowse/internal/config"
	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
	"github.com/ericfisherdev/bitbrowse/internal/logging"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
)

// githubTokenURL is GitHub's OAuth token endpoint. It only accepts the
// refresh_token grant.
const githubTokenURL = "https://github.com/login/oauth/access_token"

func main() {
	cli.SetVersionInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, bootstrap, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if hint := cli.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(cli.ExitCode(err))
	}
}

// bootstrap is the composition root. It runs once per command invocation.
func bootstrap(ctx context.Context) (*cli.App, error) {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// 2. Install the process-wide logger.
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.NewLogger(cfg.Environment, level, os.Stderr))
	slog.Debug("config loaded",
		"host", cfg.Host,
		"auth_mode", cfg.AuthMode,
		"store_driver", cfg.StoreDriver,
		"db_path", cfg.DBPath,
	)

	// 3. Encryption at rest. A nil sealer leaves storage disabled.
	s, err := sealer.New(ctx, sealer.Options{
		KMSKeyID:       cfg.KMSKeyID,
		KMSRegion:      cfg.KMSRegion,
		SecretKey:      cfg.SecretKey,
		SecretKeyFile:  cfg.SecretKeyFile,
		Passphrase:     cfg.Passphrase,
		PassphraseSalt: cfg.PassphraseSalt,
	})
	if err != nil {
		return nil, err
	}

	// 4. Open the secret store.
	store, closer, err := openStore(ctx, cfg, s)
	if err != nil {
		return nil, err
	}

	// 5. Token issuer (bearer mode only) and credential repository.
	var issuer driven.TokenIssuer
	if cfg.AuthMode == model.AuthModeToken {
		issuer = oauth.NewIssuer(cfg.ClientID, cfg.ClientSecret, tokenURL(cfg), &http.Client{Timeout: cfg.HTTPTimeout})
	}
	creds := application.NewCredentialRepository(store, issuer, application.WithTokenLeeway(cfg.TokenLeeway))

	// 6. Authenticating transport over an ETag cache.
	strategy, err := auth.NewStrategy(cfg.AuthMode, creds)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	var opts []auth.Option
	if cfg.InvalidateOn401 {
		opts = append(opts, auth.WithInvalidateOn401(creds))
	}
	authTransport := auth.NewTransport(strategy, httpcache.NewMemoryCacheTransport(), opts...)

	// 7. Git host client.
	host, err := newHost(cfg, authTransport)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	// 8. Application services.
	return &cli.App{
		Mode:     cfg.AuthMode,
		Host:     cfg.Host,
		Session:  application.NewSession(creds, host, closer),
		Browse:   application.NewBrowseService(host),
		Username: cfg.Username,
		Password: cfg.Password,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, s driven.Sealer) (driven.SecretStore, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreBolt:
		store, err := boltstore.Open(cfg.DBPath, s)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case config.StoreSQLite:
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}
		return sqliteadapter.NewSecretRepo(db, s), db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func newHost(cfg *config.Config, rt http.RoundTripper) (driven.GitHost, error) {
	switch cfg.Host {
	case config.HostGitHub:
		return githubadapter.NewClient(rt, cfg.APIURL, cfg.HTTPTimeout)
	case config.HostBitbucket:
		return bitbucket.NewClient(&http.Client{Transport: rt, Timeout: cfg.HTTPTimeout}, bitbucket.Options{
			BaseURL:           cfg.APIURL,
			RequestsPerSecond: cfg.RateLimit,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported host %q", cfg.Host)
	}
}

func tokenURL(cfg *config.Config) string {
	switch {
	case cfg.TokenURL != "":
		return cfg.TokenURL
	case cfg.Host == config.HostGitHub:
		return githubTokenURL
	default:
		return oauth.DefaultTokenURL
	}
}

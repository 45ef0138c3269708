// ABOUTME: Entry point for csgw-server
// ABOUTME: Runs the per-account WebSocket pipeline and the admin control surface

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/csgw/gateway/internal/adminapi"
	"github.com/csgw/gateway/internal/agentbot"
	"github.com/csgw/gateway/internal/auth"
	"github.com/csgw/gateway/internal/config"
	"github.com/csgw/gateway/internal/consumer"
	"github.com/csgw/gateway/internal/handler"
	"github.com/csgw/gateway/internal/logging"
	"github.com/csgw/gateway/internal/model"
	"github.com/csgw/gateway/internal/platform"
	"github.com/csgw/gateway/internal/presence"
	"github.com/csgw/gateway/internal/retry"
	"github.com/csgw/gateway/internal/store"
	"github.com/csgw/gateway/internal/supervisor"
)

const banner = `
   ___  ___  ____ __      __
  / __\/ __\/ ___/\ \ /\ / /
 / /  / _\  \__ \  \ V  V /
/ /__ / /   ___) |  \_/\_/
\____/ \/   |____/
`

// getConfigPath returns the path to the server config file.
// Priority: CSGW_CONFIG env var > XDG_CONFIG_HOME/csgw/server.yaml > ~/.config/csgw/server.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CSGW_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "server.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "csgw", "server.yaml")
}

// getDataPath returns the path to the csgw data directory.
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "csgw")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: csgw-server <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the gateway server")
		fmt.Println("  init     Create a new config file with a random admin secret")
		fmt.Println("  health   Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("  > ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("  > ")
	fmt.Printf("Admin:   %s\n", cfg.Server.AdminAddr)
	green.Print("  > ")
	fmt.Printf("Store:   %s\n", cfg.Database.Path)
	fmt.Println()

	logger.Info("starting csgw-server", "config", configPath, "admin_addr", cfg.Server.AdminAddr)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	login := &platform.StubLoginProvider{}
	retryPolicy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Base:        time.Duration(cfg.Retry.BaseMs) * time.Millisecond,
		Factor:      cfg.Retry.Factor,
	}
	platformClient := platform.New(cfg.Platform.HTTPBaseURL, st, login, retryPolicy)

	agentClient := agentbot.NewHTTPClient(cfg.Agent.Endpoint, cfg.Agent.Token, cfg.Agent.BotID)
	agent := agentbot.New(agentClient, st, logger)

	chain := buildHandlerChain(ctx, cfg, platformClient, platformClient, agent, st, logger)

	transportFactory := supervisor.NewWebSocketTransportFactory(
		wsURLFor(cfg, platformClient),
		time.Duration(cfg.Transport.PingSeconds)*time.Second,
		time.Duration(cfg.Transport.PongTimeoutSeconds)*time.Second,
		logger,
	)

	sup := supervisor.New(st, chain, supervisor.Config{
		QueueMaxSize: cfg.Queue.MaxSize,
		ConsumerConfig: consumer.Config{
			MaxConcurrent: cfg.Consumer.MaxConcurrent,
			IdleTimeout:   cfg.Dispatcher.IdleTimeout,
		},
		TransportFactory: transportFactory,
		Sender:           platformClient,
	}, logger)

	presenceCtl := presence.New(platformClient, st, logger)

	if err := sup.StartAllEligible(ctx, ""); err != nil {
		logger.Error("failed to start eligible accounts", "error", err)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Server.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}
	adminSrv := adminapi.New(verifier, sup, presenceCtl, st, logger)

	httpSrv := &http.Server{Addr: cfg.Server.AdminAddr, Handler: adminSrv}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("admin control surface listening", "addr", cfg.Server.AdminAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		logger.Error("admin server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	sup.StopAll()
	return nil
}

// buildHandlerChain assembles the handler chain in first-match priority
// order: business hours, transfer keywords, store-sourced keyword triggers,
// then the AI fallback.
func buildHandlerChain(ctx context.Context, cfg *config.Config, sender handler.Sender, transferrer handler.Transferrer, agent handler.Replier, st store.Store, logger *slog.Logger) handler.Chain {
	chain := handler.Chain{
		&handler.BusinessHoursHandler{
			Start:  cfg.Business.Start,
			End:    cfg.Business.End,
			Sender: sender,
			Logger: logger,
		},
		&handler.TransferToHumanHandler{
			Transferrer: transferrer,
			Sender:      sender,
			Logger:      logger,
		},
	}

	if keywords, err := loadKeywords(ctx, st); err != nil {
		logger.Warn("failed to load keyword triggers, skipping", "error", err)
	} else if len(keywords) > 0 {
		chain = append(chain, &handler.KeywordTriggerHandler{
			Keywords: keywords,
			Sender:   sender,
			Logger:   logger,
		})
	}

	chain = append(chain, &handler.AIReplyHandler{
		Agent:  agent,
		Sender: sender,
		Logger: logger,
	})

	return chain
}

// loadKeywords aggregates every shop's keyword triggers into one flat list.
// The handler chain is shared across all accounts, so a shop-scoped
// interface (store.ListKeywords(channel, shopID)) is folded into a single
// global list here rather than threading per-shop chains through the
// supervisor.
func loadKeywords(ctx context.Context, st store.Store) ([]string, error) {
	shops, err := st.ListShops(ctx)
	if err != nil {
		return nil, err
	}

	var keywords []string
	for _, shop := range shops {
		rows, err := st.ListKeywords(ctx, shop.Channel, shop.ShopID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			keywords = append(keywords, row.Keyword)
		}
	}
	return keywords, nil
}

// wsURLFor mints a fresh WebSocket URL per connection attempt, fetching a
// short-lived chat token from the platform rather than reusing the
// account's long-lived stored credentials directly as the access_token.
func wsURLFor(cfg *config.Config, tokenSource *platform.Client) func(ctx context.Context, acct *model.Account) (string, error) {
	return func(ctx context.Context, acct *model.Account) (string, error) {
		token, err := tokenSource.FetchChatToken(ctx, acct)
		if err != nil {
			return "", fmt.Errorf("fetching chat token for account %s: %w", acct.Key(), err)
		}
		return fmt.Sprintf("%s/?access_token=%s&role=mall_cs&client=web&version=%s",
			cfg.Platform.WSBaseURL, token, cfg.Platform.ClientVersion), nil
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/sessions", cfg.Server.AdminAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "server.db")

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating admin secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	configContent := fmt.Sprintf(`# csgw-server configuration
# Generated by csgw-server init

server:
  admin_addr: "localhost:8090"
  jwt_secret: "%s"

database:
  path: "%s"

platform:
  http_base_url: "https://example-platform.invalid"
  ws_base_url: "wss://example-platform.invalid/ws"
  client_version: "1.0.0"

agent:
  endpoint: "https://example-agent.invalid"
  token: "${AGENT_TOKEN}"
  bot_id: ""

business:
  start: "09:00"
  end: "21:00"

queue:
  max_size: 1000

consumer:
  max_concurrent: 10

dispatcher:
  idle_seconds: 30

retry:
  max_attempts: 3
  base_ms: 1000
  factor: 2.0

transport:
  ping_seconds: 20
  pong_timeout_seconds: 60

logging:
  level: "info"
  format: "text"
`, jwtSecret, dbPath)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("Created config: %s\n", configPath)
	fmt.Println("Edit platform.* and agent.* before running 'csgw-server serve'.")
	return nil
}

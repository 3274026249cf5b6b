// ABOUTME: Entry point for the profile-service account and login server
// ABOUTME: Provides serve, init, token, and health subcommands

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/profile-service/internal/auth"
	"github.com/2389/profile-service/internal/config"
	"github.com/2389/profile-service/internal/gateway"
	"github.com/2389/profile-service/internal/store"
)

// Version is set at build time.
var version = "dev"

const banner = `
                 __ _ _
 _ __  _ __ ___ / _(_) | ___       ___  ___ _ ____   _(_) ___ ___
| '_ \| '__/ _ \ |_| | |/ _ \_____/ __|/ _ \ '__\ \ / / |/ __/ _ \
| |_) | | | (_) |  _| | |  __/_____\__ \  __/ |   \ V /| | (_|  __/
| .__/|_|  \___/|_| |_|_|\___|     |___/\___|_|    \_/ |_|\___\___|
|_|
`

// getConfigPath returns the path to the service config file.
// Priority: PROFILE_CONFIG env var > XDG_CONFIG_HOME/profile/service.yaml > ~/.config/profile/service.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PROFILE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "service.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "profile", "service.yaml")
}

// getDataPath returns the path to the data directory.
// Priority: XDG_DATA_HOME/profile > ~/.local/share/profile
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "profile")
}

func usage() {
	fmt.Println("Usage: profile-service <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                  Start the HTTP (and optional gRPC) server")
	fmt.Println("  init                   Create a new config file interactively")
	fmt.Println("  token --email EMAIL    Issue a token for a registered account")
	fmt.Println("  health                 Check service health")
}

func main() {
	if len(os.Args) < 2 {
		usage()
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
	case "token":
		err = runToken(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		usage()
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

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	if cfg.Server.GRPCAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("gRPC:      %s\n", cfg.Server.GRPCAddr)
	}
	green.Print("    ▶ ")
	fmt.Printf("Policy:    ")
	if cfg.Auth.Policy == config.PolicyPermitAll {
		yellow.Println(cfg.Auth.Policy)
	} else {
		fmt.Println(cfg.Auth.Policy)
	}
	if cfg.Auth.EphemeralKey {
		green.Print("    ▶ ")
		fmt.Printf("Key:       ")
		yellow.Println("ephemeral (tokens do not survive restarts)")
	}
	fmt.Println()

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// parseEmailFlag accepts "--email value", "--email=value", "-e value" and "-e=value".
func parseEmailFlag(args []string) (string, error) {
	var email string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--email" || arg == "-e":
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case strings.HasPrefix(arg, "-e="):
			email = strings.TrimPrefix(arg, "-e=")
		case strings.HasPrefix(arg, "-"):
			return "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if strings.TrimSpace(email) == "" {
		return "", errors.New("--email flag is required")
	}
	return email, nil
}

// runToken issues a token for a registered account without going through the
// HTTP API. The token is signed with the configured key, so a running server
// accepts it.
func runToken(ctx context.Context, args []string) error {
	email, err := parseEmailFlag(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.EphemeralKey {
		return errors.New("auth.ephemeral_key is set: a token issued here would not verify against the server")
	}

	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format})

	dbPath := cfg.Database.Path
	if envPath := os.Getenv("PROFILE_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	s, err := store.NewSQLiteStore(dbPath, store.WithDriver(cfg.Database.Driver), store.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	codec, err := gateway.NewTokenCodec(cfg, logger)
	if err != nil {
		return err
	}

	svc := auth.NewService(auth.NewIdentityProvider(s), codec, cfg.Auth.TokenTTL, logger)
	token, err := svc.Authenticate(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrIdentityNotFound) {
			return fmt.Errorf("no account registered with email %q", email)
		}
		return err
	}

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(svc.TTL()).UTC().Format(time.RFC3339))
	fmt.Println(token)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	color.New(color.FgGreen).Println("healthy")
	return nil
}

// starterConfig holds the answers collected by init.
type starterConfig struct {
	HTTPAddr  string
	GRPCAddr  string
	DBPath    string
	JWTSecret string
	TokenTTL  string
	Policy    string
	LogLevel  string
	LogFormat string
}

// render produces the YAML written by init.
func (s starterConfig) render() string {
	var b strings.Builder
	b.WriteString("# profile-service configuration\n")
	b.WriteString("# Generated by profile-service init\n\n")

	b.WriteString("server:\n")
	fmt.Fprintf(&b, "  http_addr: %q\n", s.HTTPAddr)
	if s.GRPCAddr != "" {
		fmt.Fprintf(&b, "  grpc_addr: %q\n", s.GRPCAddr)
	}
	b.WriteString("  allowed_origins: []\n\n")

	b.WriteString("database:\n")
	b.WriteString("  driver: \"sqlite\"\n")
	fmt.Fprintf(&b, "  path: %q\n\n", s.DBPath)

	b.WriteString("auth:\n")
	fmt.Fprintf(&b, "  jwt_secret: %q\n", s.JWTSecret)
	b.WriteString("  issuer: \"profile-service\"\n")
	fmt.Fprintf(&b, "  token_ttl: %q\n", s.TokenTTL)
	fmt.Fprintf(&b, "  policy: %q\n\n", s.Policy)

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", s.LogLevel)
	fmt.Fprintf(&b, "  format: %q\n", s.LogFormat)
	return b.String()
}

// generateSecret returns a random base64 secret comfortably above auth.MinSecretLength.
func generateSecret() (string, error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("profile-service configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := strings.ToLower(prompt(reader, "File exists. Overwrite?", "no"))
		if overwrite != "yes" && overwrite != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	fmt.Println("\n--- Server Configuration ---")
	answers := starterConfig{JWTSecret: secret}
	answers.HTTPAddr = prompt(reader, "HTTP address", "localhost:8080")
	answers.GRPCAddr = prompt(reader, "gRPC address (empty to disable)", "")

	fmt.Println("\n--- Database Configuration ---")
	answers.DBPath = prompt(reader, "SQLite database path", filepath.Join(getDataPath(), "profile.db"))

	fmt.Println("\n--- Auth Configuration ---")
	answers.TokenTTL = prompt(reader, "Token lifetime", config.DefaultTokenTTL.String())
	answers.Policy = prompt(reader, "Policy (authenticated/permit_all)", config.PolicyAuthenticated)

	fmt.Println("\n--- Logging Configuration ---")
	answers.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	answers.LogFormat = prompt(reader, "Log format (text/json)", "text")

	content := answers.render()
	if _, err := config.Parse([]byte(content), "yaml"); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file carries the signing secret.
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(answers.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("\n  ✓ Config written to %s\n", outputFile)
	green.Printf("  ✓ Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Println("  profile-service serve")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// EOF keeps the default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

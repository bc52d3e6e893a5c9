// Package main is the Kaiwa CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kaiwa/internal/chat"
	"github.com/hyperjump/kaiwa/internal/config"
	"github.com/hyperjump/kaiwa/internal/embedding"
	"github.com/hyperjump/kaiwa/internal/extract"
	"github.com/hyperjump/kaiwa/internal/generate"
	"github.com/hyperjump/kaiwa/internal/ingest"
	"github.com/hyperjump/kaiwa/internal/models"
	"github.com/hyperjump/kaiwa/internal/server"
	"github.com/hyperjump/kaiwa/internal/session"
	"github.com/hyperjump/kaiwa/internal/vector"
	"github.com/hyperjump/kaiwa/internal/watcher"
	"github.com/hyperjump/kaiwa/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kaiwa/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kaiwa server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "upload":
		runUpload()
	case "chat":
		runChat()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kaiwa version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds the wired application core.
type Components struct {
	Embedder embedding.Embedder
	Index    *vector.Index
	Store    session.Store
	Ingester *ingest.Pipeline
	Chat     *chat.Pipeline
	Logger   *zap.Logger
}

// Close releases everything the components hold.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := session.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	var embedder embedding.Embedder
	remote, err := embedding.NewRemoteEmbedder(embedding.RemoteConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		APIKeyEnv:  cfg.Embedding.APIKeyEnv,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		logger.Warn("remote embedder unavailable, using mock embeddings",
			zap.String("env", cfg.Embedding.APIKeyEnv), zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = remote
	}
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	}

	index, err := vector.NewIndex(cfg.Embedding.Dimensions)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.IndexPath != "" {
		if loadErr := index.Load(cfg.Storage.IndexPath); loadErr != nil {
			logger.Warn("index load skipped (re-upload to rebuild)",
				zap.String("path", cfg.Storage.IndexPath), zap.Error(loadErr))
		}
	}

	var generator generate.Generator
	remoteGen, err := generate.NewRemoteGenerator(generate.RemoteConfig{
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		APIKeyEnv:   cfg.Generation.APIKeyEnv,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		TopP:        cfg.Generation.TopP,
	})
	if err != nil {
		logger.Warn("remote generator unavailable, answers will echo context",
			zap.String("env", cfg.Generation.APIKeyEnv), zap.Error(err))
		generator = &generate.Mock{Answer: "Generation is not configured. Set the API key and restart."}
	} else {
		generator = remoteGen
	}

	chunker := ingest.NewChunker(cfg.Chat.ChunkSize, cfg.Chat.ChunkOverlap)
	ingester := ingest.NewPipeline(extract.NewExtractor(), chunker, embedder, index, cfg.Storage.IndexPath, logger)
	chatPipeline := chat.NewPipeline(embedder, index, generator, store, cfg.Chat.TopK, cfg.Chat.HistoryLimit, logger)

	return &Components{
		Embedder: embedder,
		Index:    index,
		Store:    store,
		Ingester: ingester,
		Chat:     chatPipeline,
		Logger:   logger,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Directory != "" {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		ingester := components.Ingester
		dir := cfg.Watch.Directory
		watchSvc := watcher.NewWatcher(dir, func() {
			if _, err := ingester.Ingest(context.Background(), dir); err != nil {
				logger.Warn("watch re-ingest failed", zap.String("dir", dir), zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Ingester,
		components.Chat,
		components.Index,
		components.Store,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// runIngest indexes a directory directly, without the HTTP server. Useful
// for preloading an index before first start.
func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kaiwa ingest [flags] <directory>")
		os.Exit(1)
	}
	dir := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result, err := components.Ingester.Ingest(context.Background(), dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d documents (%d chunks, %d skipped)\n",
		result.Documents, result.Chunks, result.Skipped)
}

// runChat sends one message to a running server and prints the answer.
func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	showContext := fs.Bool("context", false, "print the retrieved context chunks")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kaiwa chat [flags] <message>")
		os.Exit(1)
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		fmt.Println("Usage: kaiwa chat [flags] <message>")
		os.Exit(1)
	}

	resp, err := chatViaHTTP(*serverURL, message)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp.Answer)
	if *showContext {
		for i, c := range resp.Context {
			fmt.Printf("\n--- context %d ---\n%s\n", i+1, utils.Truncate(c, 400))
		}
	}
}

func chatViaHTTP(serverURL, message string) (*models.ChatResponse, error) {
	body, err := json.Marshal(models.ChatRequest{Message: message})
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: jar, Timeout: 90 * time.Second}
	resp, err := client.Post(serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// uploadViaHTTP posts files to a running server's upload endpoint.
func uploadViaHTTP(serverURL string, paths []string) (map[string]interface{}, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		fw, err := mw.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(fw, f)
		}
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/upload", mw.FormDataContentType(), &body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// runUpload sends files to a running server, replacing its document set.
func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kaiwa upload [flags] <file>...")
		os.Exit(1)
	}
	out, err := uploadViaHTTP(*serverURL, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %v documents (%v chunks, %v skipped)\n",
		out["documents"], out["chunks"], out["skipped"])
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	DocumentsLoaded   bool     `json:"documents_loaded"`
	Chunks            int      `json:"chunks"`
	StoreConnected    bool     `json:"store_connected"`
	UploadFolder      string   `json:"upload_folder"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	fmt.Printf("Documents loaded:   %v\n", status.DocumentsLoaded)
	fmt.Printf("Chunks indexed:     %d\n", status.Chunks)
	fmt.Printf("Store connected:    %v\n", status.StoreConnected)
	fmt.Printf("Upload folder:      %s\n", status.UploadFolder)
	fmt.Printf("Allowed extensions: %s\n", strings.Join(status.AllowedExtensions, ", "))
}

func printUsage() {
	fmt.Println(`kaiwa - Chat with your documents

Usage:
  kaiwa server [flags]             Start the HTTP server
  kaiwa ingest [flags] <dir>       Index a directory of documents directly
  kaiwa upload [flags] <file>...   Send files to a running server
  kaiwa chat [flags] <message>     Send a chat message to a running server
  kaiwa status [flags]             Show index and store status
  kaiwa version                    Show version
  kaiwa help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kaiwa/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path

Upload Flags:
  --server string    Server URL (default: http://localhost:8080)

Chat Flags:
  --server string    Server URL (default: http://localhost:8080)
  --context          Print the retrieved context chunks

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  kaiwa server
  kaiwa ingest ./docs
  kaiwa chat "What does the onboarding guide say about laptops?"
  kaiwa status --output json`)
}

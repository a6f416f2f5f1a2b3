// Package main is the jimaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/cli"
	"github.com/hyperjump/jimaku/internal/config"
	"github.com/hyperjump/jimaku/internal/models"
	"github.com/hyperjump/jimaku/internal/pipeline"
	"github.com/hyperjump/jimaku/internal/server"
	"github.com/hyperjump/jimaku/internal/storage"
	"github.com/hyperjump/jimaku/internal/watcher"
	"github.com/hyperjump/jimaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/jimaku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
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
	case "transcript":
		runTranscript()
	case "subtitle":
		runSubtitle()
	case "search":
		runSearch()
	case "reindex":
		runReindex()
	case "videos":
		runVideos()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("jimaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config, builds a logger and initializes components for a direct-mode command.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (inbox events, indexing, translation)")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := pipeline.NewQueue(components.Subtitler, cfg.Jobs.Backlog, cfg.Jobs.Workers, utils.Component(logger, "queue"))
	queue.OnDone(func(job models.SubtitleJob, res *pipeline.Result, err error) {
		if err == nil {
			logger.Debug("subtitle job done", zap.String("video_id", job.VideoID), zap.Int("cues", res.Cues))
		}
	})
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Watch.EnabledOrDefault() {
		inbox := watcher.NewWatcher(
			cfg.Watch.Inbox,
			cfg.Watch.Extensions,
			inboxHandler(components, cfg.Watch.ContentLanguage, logger),
			watcher.WithLogger(utils.Component(logger, "watcher")),
		)
		if err := inbox.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer inbox.Stop()
		go inbox.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Subtitler,
		queue,
		components.Videos,
		components.Blobs,
		cfg,
		utils.Component(logger, "server"),
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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	id := fs.String("id", "", "video id (default: random uuid)")
	copyMedia := fs.Bool("copy", false, "copy the media file into the blob store")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: jimaku ingest [flags] <title.lang.ext>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	name, err := pipeline.ParseMediaName(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	input := models.VideoInput{ID: *id, Title: name.Title, Language: name.Language}
	video, err := pipeline.RegisterVideo(ctx, components.Videos, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if *copyMedia {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read media failed: %v\n", err)
			os.Exit(1)
		}
		if err := components.Blobs.Put(ctx, storage.VideoKey(video.ID, name.Ext), data); err != nil {
			fmt.Fprintf(os.Stderr, "Store media failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Video registered: %s (%q, %s)\n", video.ID, video.Title, video.Language)
}

func runTranscript() {
	fs := flag.NewFlagSet("transcript", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: jimaku transcript [flags] <video-id> <transcript.json>")
		os.Exit(1)
	}
	videoID, path := fs.Arg(0), fs.Arg(1)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read transcript failed: %v\n", err)
		os.Exit(1)
	}

	var res pipeline.Result
	if *serverURL != "" {
		endpoint := *serverURL + "/api/v1/videos/" + url.PathEscape(videoID) + "/transcript"
		if err := doJSON(http.MethodPut, endpoint, data, http.StatusOK, &res); err != nil {
			fmt.Fprintf(os.Stderr, "Transcript failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		out, err := components.Subtitler.AcceptTranscript(context.Background(), videoID, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Transcript failed: %v\n", err)
			os.Exit(1)
		}
		res = *out
	}
	printResult(&res)
}

func runSubtitle() {
	args := searchArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("subtitle", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	target := fs.String("translate", "", "translate the subtitle to this language")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: jimaku subtitle [--translate xx] <video-id>")
		os.Exit(1)
	}
	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	res, err := components.Subtitler.Process(context.Background(), models.SubtitleJob{
		VideoID:           fs.Arg(0),
		TranslateLanguage: *target,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Subtitle failed: %v\n", err)
		os.Exit(1)
	}
	printResult(res)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: jimaku reindex <video-id> <lang>")
		os.Exit(1)
	}
	videoID, lang := fs.Arg(0), fs.Arg(1)

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	video, err := components.Videos.GetVideo(ctx, videoID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
		os.Exit(1)
	}
	job := models.SubtitleJob{VideoID: videoID, ContentLanguage: video.Language}
	if lang != video.Language {
		job.TranslateLanguage = lang
	}
	res, err := components.Subtitler.Process(ctx, job)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
		os.Exit(1)
	}
	printResult(res)
}

func printResult(res *pipeline.Result) {
	if res.Skipped {
		fmt.Printf("Transcript unchanged for %s; subtitle %s already up to date\n", res.VideoID, res.Language)
		return
	}
	fmt.Printf("Subtitle %s/%s: %d cues, %d indexed\n", res.VideoID, res.Language, res.Cues, res.Indexed)
	fmt.Printf("  %s\n  %s\n", res.VTTKey, res.SRTKey)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: jimaku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  jimaku search --lang en weather today
  jimaku search --lang ja 天気
  jimaku search --lang en --video 3f2a... "+weather -rain"
  jimaku search --lang en --format json hello
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// positionals to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// defaultSearchLanguage picks the search language when --lang is not given.
func defaultSearchLanguage(cfg *config.Config) string {
	if cfg != nil && cfg.Watch.ContentLanguage != "" {
		return cfg.Watch.ContentLanguage
	}
	return "en"
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	lang := fs.String("lang", "", "subtitle language to search (default: watch.content_language or en)")
	videoID := fs.String("video", "", "restrict results to one video id")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("format", "auto", "output format: text, table, json or auto (table on a terminal, json otherwise)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Language: *lang,
		Query:    queryStr,
		VideoID:  *videoID,
		Limit:    *limit,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		if searchQuery.Language == "" {
			cfg, _, _ := loadConfig(*configPath)
			searchQuery.Language = defaultSearchLanguage(cfg)
		}
		// Use HTTP API when server is running (the server holds the index locks).
		response, err = searchViaHTTP(*serverURL, searchQuery)
	} else {
		cfg, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		if searchQuery.Language == "" {
			searchQuery.Language = defaultSearchLanguage(cfg)
		}
		response, err = components.Engine.Search(context.Background(), searchQuery)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	var response models.SearchResponse
	if err := doJSON(http.MethodPost, serverURL+"/api/v1/search", body, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// doJSON sends body to endpoint and decodes a JSON response with status want into out.
func doJSON(method, endpoint string, body []byte, want int, out interface{}) error {
	req, err := http.NewRequest(method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runVideos() {
	fs := flag.NewFlagSet("videos", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	offset := fs.Int("offset", 0, "skip this many videos")
	limit := fs.Int("limit", 20, "number of videos")
	_ = fs.Parse(os.Args[2:])

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	videos, err := components.Videos.ListVideos(context.Background(), *offset, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List videos failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteVideos(os.Stdout, videos); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Videos         int64             `json:"videos"`
	Documents      map[string]uint64 `json:"documents"`
	DiskUsageBytes *int64            `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfig     `json:"config,omitempty"`
}

type statusConfig struct {
	DatabasePath       string `json:"database_path,omitempty"`
	BlobPath           string `json:"blob_path,omitempty"`
	IndexPath          string `json:"index_path,omitempty"`
	TranslationEnabled bool   `json:"translation_enabled"`
	Inbox              string `json:"inbox,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		count, err := components.Videos.CountVideos(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count videos failed: %v\n", err)
			os.Exit(1)
		}
		docs, err := components.Indexer.DocCounts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Videos:    count,
			Documents: docs,
			Config: &statusConfig{
				DatabasePath:       cfg.Storage.DatabasePath,
				BlobPath:           cfg.Storage.BlobPath,
				IndexPath:          cfg.Storage.IndexPath,
				TranslationEnabled: cfg.Translate.Enabled(),
				Inbox:              cfg.Watch.Inbox,
			},
		}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BlobPath, cfg.Storage.IndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, &status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "videos:             %d   # registered videos\n", status.Videos)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + blobs + indices on disk\n", *status.DiskUsageBytes)
	}
	langs := make([]string, 0, len(status.Documents))
	for lang := range status.Documents {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	if len(langs) > 0 {
		fmt.Fprintln(w)
		_ = cli.WriteDocCounts(w, status.Documents, langs)
	}
	if status.Config != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "translation:        %t\n", status.Config.TranslationEnabled)
		if status.Config.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
		}
		if status.Config.BlobPath != "" {
			fmt.Fprintf(w, "blob_path:          %s\n", status.Config.BlobPath)
		}
		if status.Config.IndexPath != "" {
			fmt.Fprintf(w, "index_path:         %s\n", status.Config.IndexPath)
		}
		if status.Config.Inbox != "" {
			fmt.Fprintf(w, "inbox:              %s\n", status.Config.Inbox)
		}
	}
}

func getJSON(endpoint string, out interface{}) error {
	resp, err := http.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printUsage() {
	fmt.Println(`jimaku - Subtitles from transcripts, searchable in every language

Usage:
  jimaku server [flags]                      Start the HTTP server, job queue and inbox watcher
  jimaku ingest [flags] <title.lang.ext>     Register a video from its media file name
  jimaku transcript [flags] <id> <file>      Store a transcript and build its subtitle
  jimaku subtitle [--translate xx] <id>      Build (and optionally translate) a subtitle
  jimaku search [flags] <query>              Search subtitle cues
  jimaku reindex <id> <lang>                 Rebuild and reindex one subtitle
  jimaku videos [flags]                      List registered videos
  jimaku status [flags]                      Show storage/index status
  jimaku version                             Show version
  jimaku help                                Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/jimaku/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path (direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --lang string      Subtitle language (default: watch.content_language or en)
  --video string     Restrict to one video
  --limit int        Number of results (default: 10)
  --format string    text, table, json or auto (default: auto)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  jimaku server
  jimaku ingest "My+Talk.en.mp4"
  jimaku transcript 3f2a... ./transcript.json
  jimaku subtitle --translate ko 3f2a...
  jimaku search --lang en "weather today"
  jimaku search --lang ko --format table 안녕
  jimaku status --output json`)
}

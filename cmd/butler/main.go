// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/butler"
	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/assistant"
	"github.com/poiesic/butler/config"
	"github.com/poiesic/butler/metrics"
	"github.com/poiesic/butler/recipes"
	"github.com/poiesic/butler/server"
	"github.com/poiesic/butler/warmup"
	"github.com/urfave/cli/v2"
)

// newButler is replaced in tests.
var newButler = butler.New

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "butler",
		Usage: "Life-assistant intent routing, recipe retrieval and failover generation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"BUTLER_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from these files",
				Value: cli.NewStringSlice(".env"),
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return config.LoadEnvFiles(c.StringSlice("env-file")...)
		},
		Commands: []*cli.Command{
			{
				Name:      "classify",
				Usage:     "Classify an utterance and print its intent and slots",
				ArgsUsage: "<text>",
				Action:    classifyCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "with-recipes",
						Usage: "Load recipe titles into the index first",
					},
				},
			},
			{
				Name:      "retrieve",
				Usage:     "Find the recipe whose title best matches a query",
				ArgsUsage: "<query>",
				Action:    retrieveCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Fetch the remote corpus even if the cache file exists",
					},
				},
			},
			{
				Name:      "generate",
				Usage:     "Generate text through the backends in priority order",
				ArgsUsage: "<prompt>",
				Action:    generateCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "image",
						Aliases: []string{"i"},
						Usage:   "Attach an image file",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer an utterance end to end",
				ArgsUsage: "<text>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "User id for stored preferences",
					},
					&cli.StringFlag{
						Name:  "city",
						Usage: "City used for nearby search",
					},
				},
			},
			{
				Name:   "warm-cache",
				Usage:  "Embed every exemplar and recipe title into the embedding cache",
				Action: warmCacheCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of texts per embedding call (default from config)",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default from config)",
					},
					&cli.BoolFlag{
						Name:  "preload",
						Usage: "Load the recipe corpus before accepting requests",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Reload the knowledge base when the config file changes",
						Value: true,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(c.String("config"))
}

func open(c *cli.Context, opts ...butler.Option) (*butler.Butler, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	b, err := newButler(c.Context, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return b, cfg, nil
}

// text joins the positional arguments.
func text(c *cli.Context, what string) (string, error) {
	t := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if t == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return t, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func classifyCommand(c *cli.Context) error {
	utterance, err := text(c, "text")
	if err != nil {
		return err
	}
	b, _, err := open(c)
	if err != nil {
		return err
	}
	defer b.Close()

	if c.Bool("with-recipes") {
		if err := b.EnsureDocumentsLoaded(c.Context); err != nil {
			slog.Warn("recipe titles unavailable", "err", err)
		}
	}

	result, err := b.ClassifyAndExtract(c.Context, utterance)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]any{
		"intent": result.Intent,
		"score":  result.Score,
		"slots":  result.Slots,
	})
}

func retrieveCommand(c *cli.Context) error {
	query, err := text(c, "query")
	if err != nil {
		return err
	}
	b, _, err := open(c)
	if err != nil {
		return err
	}
	defer b.Close()

	if c.Bool("refresh") {
		if err := b.RefreshDocuments(c.Context); err != nil {
			return err
		}
	}

	match, err := b.RetrieveDocument(c.Context, query)
	if errors.Is(err, recipes.ErrNoMatch) {
		fmt.Fprintf(c.App.Writer, "no recipe matched %q (best: %s, %.3f)\n", query, match.Recipe.Name, match.Score)
		return nil
	}
	if err != nil {
		return err
	}
	return printJSON(c, map[string]any{
		"score":  match.Score,
		"recipe": match.Recipe,
	})
}

func generateCommand(c *cli.Context) error {
	prompt, err := text(c, "prompt")
	if err != nil {
		return err
	}
	parts := []ai.Part{ai.TextPart(prompt)}
	for _, path := range c.StringSlice("image") {
		part, err := readImage(path)
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}

	b, _, err := open(c)
	if err != nil {
		return err
	}
	defer b.Close()

	out, err := b.Generate(c.Context, parts...)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}

// readImage loads path as a binary part, typing it by extension and then
// by content.
func readImage(path string) (ai.Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ai.Part{}, fmt.Errorf("reading image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return ai.BinaryPart(mimeType, data), nil
}

func askCommand(c *cli.Context) error {
	utterance, err := text(c, "text")
	if err != nil {
		return err
	}
	b, _, err := open(c)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.EnsureDocumentsLoaded(c.Context); err != nil {
		slog.Warn("recipe corpus unavailable", "err", err)
	}

	req := assistant.Request{UserID: c.String("user"), Text: utterance}
	if city := c.String("city"); city != "" {
		req.Near = &assistant.Location{City: city}
	}
	reply, err := b.Ask(c.Context, req)
	if err != nil {
		return err
	}
	slog.Debug("answered", "intent", reply.Intent, "score", reply.Score, "degraded", reply.Degraded)
	fmt.Fprintln(c.App.Writer, reply.Text)
	return nil
}

func warmCacheCommand(c *cli.Context) error {
	b, cfg, err := open(c)
	if err != nil {
		return err
	}
	defer b.Close()
	if !cfg.Cache.Enabled {
		slog.Warn("embedding cache disabled, vectors will not persist")
	}

	opts := []warmup.Option{
		warmup.WithRetryPolicy(warmup.RetryPolicy{
			MaxAttempts: c.Int("max-retries"),
			BaseDelay:   c.Duration("retry-delay"),
		}),
	}
	if n := c.Int("batch-size"); n > 0 {
		opts = append(opts, warmup.WithBatchSize(n))
	}

	start := time.Now()
	stats, err := b.WarmCache(c.Context, c.App.ErrWriter, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "embedded %d texts in %d batches (%s)\n", stats.Texts, stats.Batches, time.Since(start).Round(time.Millisecond))
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, cfg, err := open(c, butler.WithMetrics())
	if err != nil {
		return err
	}
	defer b.Close()

	if c.Bool("preload") {
		if err := b.EnsureDocumentsLoaded(ctx); err != nil {
			slog.Warn("recipe corpus unavailable, will retry on demand", "err", err)
		}
	}

	if path := c.String("config"); path != "" && c.Bool("watch") {
		go func() {
			err := config.Watch(ctx, path, func(next *config.Config) {
				if err := b.Reconfigure(ctx, next); err != nil {
					slog.Error("applying reloaded config failed", "err", err)
				}
			}, slog.Default())
			if err != nil {
				slog.Error("config watch stopped", "err", err)
			}
		}()
	}

	addr := cfg.Server.Addr
	if a := c.String("addr"); a != "" {
		addr = a
	}
	srv := server.New(b,
		server.WithLogger(slog.Default().With("component", "server")),
		server.WithMetrics(metrics.HTTPRequestsTotal, metrics.HTTPRequestDuration),
	)
	return srv.ListenAndServe(ctx, addr, cfg.Server.ReadTimeout.Duration, cfg.Server.WriteTimeout.Duration)
}

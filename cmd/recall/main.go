// Copyright 2026 Perigee Labs
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/perigee/recall"
	"github.com/perigee/recall/ai"
	"github.com/perigee/recall/rank"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Document retrieval engine with hybrid semantic and lexical ranking",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest text files into the corpus",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags:     append(storeFlags(), embeddingFlags()...),
			},
			{
				Name:      "query",
				Usage:     "Retrieve the most relevant chunks for a query",
				ArgsUsage: "QUERY",
				Action:    queryCommand,
				Flags: append(storeFlags(), append(embeddingFlags(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.BoolFlag{
						Name:  "semantic-only",
						Usage: "Disable the lexical stage and rank by similarity alone",
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Drop results below this raw semantic similarity",
						Value: 0.25,
					},
					&cli.IntFlag{
						Name:  "max-context",
						Usage: "Print results as a context block capped at N runes (0 prints a result list)",
					},
				)...),
			},
			{
				Name:   "sweep",
				Usage:  "Remove expired rows from the durable caches",
				Action: sweepCommand,
				Flags:  storeFlags(),
			},
			{
				Name:   "stats",
				Usage:  "Show corpus size and cache counters",
				Action: statsCommand,
				Flags:  storeFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.IntFlag{
			Name:  "embedding-dimensions",
			Usage: "Expected embedding dimension (0 disables the check)",
			Value: 768,
		},
	}
}

func openEngine(c *cli.Context, opts ...recall.EngineOption) (*recall.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithDimensions(c.Int("embedding-dimensions")),
	)
	opts = append(opts, recall.WithAIConfig(aiConfig))
	return recall.Open(c.Context, c.String("db"), opts...)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	engine, err := openEngine(c, recall.WithProgress(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		summary, err := engine.Ingest(c.Context, filepath.Base(path), string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		fmt.Fprintf(os.Stderr, "%s: %d chunks, %d embedded (%d cached) in %s\n",
			summary.Filename, summary.ChunkCount, summary.Embedded,
			summary.CacheHits, summary.Duration.Round(time.Millisecond))
		if len(summary.FailedChunks) > 0 {
			fmt.Fprintf(os.Stderr, "  warning: %d chunks failed to embed: %v\n",
				len(summary.FailedChunks), summary.FailedChunks)
		}
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one query argument is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	opts := rank.Options{
		TopK:          c.Int("top-k"),
		Hybrid:        !c.Bool("semantic-only"),
		MinSimilarity: float32(c.Float64("min-similarity")),
	}

	results, err := engine.Retrieve(c.Context, c.Args().First(), opts)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if maxContext := c.Int("max-context"); maxContext > 0 {
		fmt.Println(recall.FormatContext(results, maxContext))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%2d. %s #%d  score=%.3f  similarity=%.3f\n",
			i+1, result.SourceFilename, result.ChunkIndex, result.Score, result.Similarity)
		fmt.Printf("    %s\n", firstLine(result.ChunkText))
	}
	return nil
}

func sweepCommand(c *cli.Context) error {
	engine, err := recall.Open(c.Context, c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	removed, err := engine.Sweep(c.Context)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "removed %d expired cache rows\n", removed)
	return nil
}

func statsCommand(c *cli.Context) error {
	engine, err := recall.Open(c.Context, c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	stats, err := engine.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	fmt.Printf("documents: %d\n", stats.Documents)
	fmt.Printf("chunks:    %d\n", stats.Chunks)
	for name, tier := range stats.QueryCache {
		fmt.Printf("cache %s: hits=%d misses=%d sets=%d evictions=%d hit-rate=%.2f\n",
			name, tier.Hits, tier.Misses, tier.Sets, tier.Evictions, tier.HitRate())
	}
	return nil
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	const maxPreview = 120
	runes := []rune(text)
	if len(runes) > maxPreview {
		return string(runes[:maxPreview]) + "..."
	}
	return text
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
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

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
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/lexmap"
	"github.com/poiesic/lexmap/ai"
	"github.com/poiesic/lexmap/lexical"
	"github.com/poiesic/lexmap/pipeline"
	"github.com/poiesic/lexmap/taxonomy"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lexmap",
		Usage: "Map free-form legal text onto taxonomy concepts",
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
				Name:      "map",
				Usage:     "Run the full mapping pipeline over one or more items",
				ArgsUsage: "ITEM [ITEM...]",
				Action:    mapCommand,
				Flags: append(providerFlags(),
					&cli.StringFlag{
						Name:     "taxonomy",
						Aliases:  []string{"t"},
						Usage:    "Path to the taxonomy snapshot JSON",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum lexical score as a fraction (0.3 keeps hits scoring >= 30)",
						Value: 0.3,
					},
					&cli.IntFlag{
						Name:  "max-per-branch",
						Usage: "Maximum answer entries per branch",
						Value: 10,
					},
					&cli.StringSliceFlag{
						Name:  "mandatory-branch",
						Usage: "Branch that must receive candidates regardless of pre-scan tagging (repeatable)",
					},
					&cli.StringFlag{
						Name:  "vector-cache",
						Usage: "Directory for the on-disk vector cache",
					},
				),
			},
			{
				Name:   "build-index",
				Usage:  "Build the concept vector index and persist it to the cache",
				Action: buildIndexCommand,
				Flags: append(providerFlags(),
					&cli.StringFlag{
						Name:     "taxonomy",
						Aliases:  []string{"t"},
						Usage:    "Path to the taxonomy snapshot JSON",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "vector-cache",
						Usage:    "Directory for the on-disk vector cache",
						Required: true,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Run a lexical-only search against the taxonomy",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "taxonomy",
						Aliases:  []string{"t"},
						Usage:    "Path to the taxonomy snapshot JSON",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum score as a fraction",
						Value: 0.3,
					},
					&cli.IntFlag{
						Name:  "max-per-branch",
						Usage: "Maximum hits per branch",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "bridging",
						Usage: "Enable cross-branch bridging",
					},
				},
			},
			{
				Name:   "branches",
				Usage:  "List the live taxonomy branches",
				Action: branchesCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// providerFlags are the AI connection flags shared by LLM-backed commands.
func providerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "completion-host",
			Usage: "Completion service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name",
			Value: "qwen2.5:3b",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL (empty disables the vector index)",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "API token for the AI services",
			Value: "none",
		},
	}
}

func aiConfigFromFlags(c *cli.Context) (*ai.Config, error) {
	opts := []ai.ConfigOption{
		ai.WithCompletionHost(c.String("completion-host")),
		ai.WithCompletionModel(c.String("completion-model")),
		ai.WithToken(c.String("token")),
	}
	if c.String("embedding-host") != "" && c.String("embedding-model") != "" {
		opts = append(opts,
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")))
	} else {
		opts = append(opts, ai.WithoutEmbedding())
	}

	config := ai.NewConfig(opts...)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return config, nil
}

func mapCommand(c *cli.Context) error {
	items := c.Args().Slice()
	if len(items) == 0 {
		return fmt.Errorf("at least one item is required")
	}

	config, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}

	mapperOpts := []lexmap.MapperOption{lexmap.WithAIConfig(config)}
	if cachePath := c.String("vector-cache"); cachePath != "" {
		mapperOpts = append(mapperOpts, lexmap.WithVectorCachePath(cachePath))
	}

	mapper, err := lexmap.NewMapper(c.String("taxonomy"), mapperOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize mapper: %w", err)
	}
	defer mapper.Close()

	response, err := mapper.Map(context.Background(), items, pipeline.Options{
		Threshold:         c.Float64("threshold"),
		MaxPerBranch:      c.Int("max-per-branch"),
		MandatoryBranches: c.StringSlice("mandatory-branch"),
	})
	if err != nil {
		return fmt.Errorf("mapping failed: %w", err)
	}

	return printJSON(response)
}

func buildIndexCommand(c *cli.Context) error {
	config, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}
	if !config.EmbeddingConfigured() {
		return fmt.Errorf("embedding-host and embedding-model are required to build the index")
	}

	mapper, err := lexmap.NewMapper(c.String("taxonomy"),
		lexmap.WithAIConfig(config),
		lexmap.WithVectorCachePath(c.String("vector-cache")))
	if err != nil {
		return fmt.Errorf("failed to initialize mapper: %w", err)
	}
	defer mapper.Close()

	fmt.Fprintf(os.Stderr, "Taxonomy: %s\n", c.String("taxonomy"))
	fmt.Fprintf(os.Stderr, "Cache: %s\n", c.String("vector-cache"))

	if err := mapper.BuildIndex(context.Background()); err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Index built.")
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	oracle, err := taxonomy.LoadSnapshot(c.String("taxonomy"))
	if err != nil {
		return fmt.Errorf("failed to load taxonomy: %w", err)
	}

	resolver := taxonomy.NewResolver(oracle)
	registry := taxonomy.NewRegistry()
	engine := lexical.NewEngine(oracle, resolver, registry)

	hits := engine.Search(query, lexical.Options{
		Threshold:    c.Float64("threshold"),
		PerBranchCap: c.Int("max-per-branch"),
		Bridging:     c.Bool("bridging"),
	})
	return printJSON(hits)
}

func branchesCommand(c *cli.Context) error {
	return printJSON(taxonomy.NewRegistry().Live())
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
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

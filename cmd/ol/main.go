// Package main provides ol, a command-line tool for looking up,
// searching and editing Open Library catalog records.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/internetarchive/olclient/internal/config"
	"github.com/internetarchive/olclient/internal/database"
	"github.com/internetarchive/olclient/internal/logger"
	"github.com/internetarchive/olclient/pkg/models"
	"github.com/internetarchive/olclient/pkg/openlibrary"
)

func init() {
	logger.Setup(logger.Config{
		Level:      "info",
		Format:     logger.FormatConsole,
		TimeFormat: time.RFC3339,
	})
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A local .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "ol",
		Usage:   "Look up, search and edit Open Library catalog records",
		Version: fmt.Sprintf("%s (%s) %s", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Open Library endpoint to talk to",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (console, json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "configure",
				Usage: "Store credentials and endpoint in the config file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "Open Library account email"},
					&cli.StringFlag{Name: "password", Usage: "Open Library account password"},
					&cli.StringFlag{Name: "access", Usage: "archive.org S3 access key"},
					&cli.StringFlag{Name: "secret", Usage: "archive.org S3 secret key"},
				},
				Action: configure,
			},
			{
				Name:      "get",
				Usage:     "Fetch a record by OLID and print its JSON",
				ArgsUsage: "OLID",
				Action:    getRecord,
			},
			{
				Name:  "search",
				Usage: "Search for works by title and/or author",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Work title"},
					&cli.StringFlag{Name: "author", Usage: "Author name"},
				},
				Action: searchWorks,
			},
			{
				Name:      "author-works",
				Usage:     "List works of an author by OLID or name",
				ArgsUsage: "OLID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Resolve the author by exact name instead of OLID"},
					&cli.IntFlag{Name: "limit", Usage: "Page size", Value: 50},
					&cli.IntFlag{Name: "offset", Usage: "Page offset"},
				},
				Action: authorWorks,
			},
			{
				Name:      "olid",
				Usage:     "Look up an edition OLID by ISBN",
				ArgsUsage: "ISBN",
				Action:    editionOLID,
			},
			{
				Name:  "create",
				Usage: "Create a new book from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Input JSON file with book data",
						Required: true,
					},
					&cli.StringFlag{Name: "work", Usage: "Attach the edition to an existing work OLID"},
				},
				Action: createBook,
			},
			{
				Name:  "cache",
				Usage: "Manage the local catalog cache",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "Show cached record counts",
						Action: cacheStats,
					},
					{
						Name:  "purge",
						Usage: "Drop cache entries older than a duration",
						Flags: []cli.Flag{
							&cli.DurationFlag{
								Name:  "older-than",
								Usage: "Drop entries fetched longer ago than this",
								Value: 24 * time.Hour,
							},
						},
						Action: cachePurge,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Get().Error("Error running application", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

// loadConfig assembles configuration from file, environment and
// command-line flags and reconfigures the logger accordingly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if baseURL := c.String("base-url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if format := c.String("log-format"); format != "" {
		cfg.Logging.Format = format
	}

	logger.ForceSetup(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     logger.ParseLogFormat(cfg.Logging.Format),
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}

func newClient(cfg *config.Config) *openlibrary.Client {
	return openlibrary.NewClient(openlibrary.ClientConfig{
		BaseURL: cfg.BaseURL,
	}, logger.Get())
}

func credentials(cfg *config.Config) openlibrary.Credentials {
	return openlibrary.Credentials{
		Username:  cfg.OpenLibrary.Username,
		Password:  cfg.OpenLibrary.Password,
		AccessKey: cfg.OpenLibrary.AccessKey,
		SecretKey: cfg.OpenLibrary.SecretKey,
	}
}

// openRepository returns the persistent catalog cache, or nil when no
// cache path is configured.
func openRepository(cfg *config.Config) (*database.Repository, func(), error) {
	if cfg.Cache.Path == "" {
		return nil, func() {}, nil
	}
	db, err := database.NewDatabase(cfg.Cache.Path, logger.Get())
	if err != nil {
		return nil, nil, err
	}
	return database.NewRepository(db, logger.Get()), func() { _ = db.Close() }, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func configure(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if username := c.String("username"); username != "" {
		cfg.OpenLibrary.Username = username
	}
	if password := c.String("password"); password != "" {
		cfg.OpenLibrary.Password = password
	}
	if access := c.String("access"); access != "" {
		cfg.OpenLibrary.AccessKey = access
	}
	if secret := c.String("secret"); secret != "" {
		cfg.OpenLibrary.SecretKey = secret
	}
	if err := cfg.OpenLibrary.Validate(); err != nil {
		return err
	}

	// Verify the credentials before persisting them
	if !cfg.OpenLibrary.IsZero() {
		if err := newClient(cfg).Login(c.Context, credentials(cfg)); err != nil {
			return fmt.Errorf("credentials rejected: %w", err)
		}
	}

	path := c.String("config")
	if path == "" {
		path = config.DefaultPath()
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Configuration saved to %s\n", path)
	return nil
}

func getRecord(c *cli.Context) error {
	olid := c.Args().First()
	if olid == "" {
		return fmt.Errorf("usage: ol get OLID")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if repo != nil {
		if data, err := repo.Get(olid, cfg.Cache.TTL); err == nil {
			var doc map[string]interface{}
			if err := json.Unmarshal(data, &doc); err == nil {
				return printJSON(doc)
			}
		}
	}

	record, err := newClient(cfg).Get(c.Context, olid)
	if err != nil {
		return err
	}

	doc := record.Document()
	if repo != nil {
		if data, err := json.Marshal(doc); err == nil {
			if err := repo.Put(olid, data); err != nil {
				logger.Get().Warn("Failed to cache record", map[string]interface{}{
					"olid":  olid,
					"error": err.Error(),
				})
			}
		}
	}
	return printJSON(doc)
}

func searchWorks(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	results, err := newClient(cfg).SearchWorks(c.Context, c.String("title"), c.String("author"))
	if err != nil {
		return err
	}
	return printJSON(results)
}

func authorWorks(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	client := newClient(cfg)

	olid := c.Args().First()
	if name := c.String("name"); name != "" {
		olid, err = client.GetAuthorOLIDByName(c.Context, name)
		if err != nil {
			return err
		}
	}
	if olid == "" {
		return fmt.Errorf("usage: ol author-works OLID (or --name)")
	}

	works, err := client.AuthorWorks(c.Context, olid, c.Int("limit"), c.Int("offset"))
	if err != nil {
		return err
	}
	return printJSON(works)
}

func editionOLID(c *cli.Context) error {
	isbn := c.Args().First()
	if isbn == "" {
		return fmt.Errorf("usage: ol olid ISBN")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	olid, err := newClient(cfg).GetEditionOLID(c.Context, openlibrary.BibkeyISBN, isbn)
	if err != nil {
		return err
	}
	fmt.Println(olid)
	return nil
}

func createBook(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.OpenLibrary.IsZero() {
		return fmt.Errorf("creating records requires credentials, run `ol configure` first")
	}

	data, err := os.ReadFile(c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return fmt.Errorf("failed to parse book JSON: %w", err)
	}

	client := newClient(cfg)
	if err := client.Login(c.Context, credentials(cfg)); err != nil {
		return err
	}

	edition, err := client.CreateBook(c.Context, &book, c.String("work"))
	if err != nil {
		return err
	}
	return printJSON(edition)
}

func cacheStats(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()
	if repo == nil {
		return fmt.Errorf("no cache path configured, set cache.path or OL_CACHE_PATH")
	}

	stats := map[string]int64{}
	for _, kind := range []models.Kind{models.KindWork, models.KindEdition, models.KindAuthor} {
		n, err := repo.Count(kind)
		if err != nil {
			return err
		}
		stats[string(kind)] = n
	}
	return printJSON(stats)
}

func cachePurge(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()
	if repo == nil {
		return fmt.Errorf("no cache path configured, set cache.path or OL_CACHE_PATH")
	}

	removed, err := repo.Purge(time.Now().Add(-c.Duration("older-than")))
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d cache entries\n", removed)
	return nil
}

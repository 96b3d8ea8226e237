// cmd/intentlink/main.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"intentlink/client"
	"intentlink/internal/intent"
	"intentlink/internal/storage"
	"intentlink/internal/view"

	"github.com/dgraph-io/badger/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger = zap.NewNop()

	dbPath    string
	serverURL string
	ephemeral bool
	verbose   bool
	baseURL   string
	tzName    string
)

var rootCmd = &cobra.Command{
	Use:   "intentlink",
	Short: "Share what you plan to do as a link",
	Long: `intentlink turns a plan (an activity, a time, maybe a place) into a
self-contained link. Anyone holding the link can read the plan and say they
are interested; nothing about the plan itself is stored anywhere.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	var activity, at, place, note string

	var encodeCmd = &cobra.Command{
		Use:   "encode",
		Short: "Create a share link for an intention",
		Example: `  intentlink encode --activity "Climbing" --at 2025-03-14T18:00 --place "Mission Cliffs, San Francisco"
  intentlink encode --activity "Coffee" --at 2025-03-14T09:30:00-08:00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := location()
			if err != nil {
				return err
			}
			svc := newService(storage.NewMemoryKV(), loc)

			shared, err := svc.Share(view.ShareRequest{
				Activity:    activity,
				ScheduledAt: at,
				Place:       place,
				Note:        note,
			}, time.Now())
			if err != nil {
				return fmt.Errorf("creating intention: %w", err)
			}

			fmt.Printf("token: %s\n", shared.Token)
			fmt.Printf("url:   %s\n", shared.URL)
			logger.Debug("encoded intention", zap.Int64("created_at", shared.Intention.CreatedAt))
			return nil
		},
	}
	encodeCmd.Flags().StringVarP(&activity, "activity", "a", "", "What you plan to do")
	encodeCmd.Flags().StringVarP(&at, "at", "t", "", "When, as ISO 8601 (zone-less values use --tz)")
	encodeCmd.Flags().StringVarP(&place, "place", "p", "", "Where, most specific part first")
	encodeCmd.Flags().StringVarP(&note, "note", "n", "", "Anything else")
	encodeCmd.MarkFlagRequired("activity")
	encodeCmd.MarkFlagRequired("at")

	var decodeCmd = &cobra.Command{
		Use:   "decode <token|url>",
		Short: "Print the intention carried by a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := intent.Decode(intent.ExtractToken(args[0]))
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(i, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	var nowFlag string
	var showCmd = &cobra.Command{
		Use:   "show <token|url>",
		Short: "Render an intention the way its share page does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := intent.ExtractToken(args[0])

			if serverURL != "" {
				if nowFlag != "" {
					return errNowWithServer
				}
				c, err := newClient()
				if err != nil {
					return err
				}
				page, err := c.View(token)
				if err != nil {
					return err
				}
				saveViewer(c)
				printPage(page)
				return nil
			}

			loc, err := location()
			if err != nil {
				return err
			}
			now := time.Now()
			if nowFlag != "" {
				if now, err = intent.ParseScheduledAt(nowFlag, loc); err != nil {
					return fmt.Errorf("parsing --now: %w", err)
				}
			}

			kv, closeKV, err := openKV()
			if err != nil {
				return err
			}
			defer closeKV()

			page, err := newService(kv, loc).Render(token, "", now)
			if err != nil {
				return err
			}
			printPage(page)
			return nil
		},
	}
	showCmd.Flags().StringVar(&nowFlag, "now", "", "Render as of this time instead of the current one")

	var kindFlag string
	var interestCmd = &cobra.Command{
		Use:   "interest <token|url>",
		Short: "Register interest in an intention",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := intent.ExtractToken(args[0])
			kind, err := intent.ParseKind(kindFlag)
			if err != nil {
				return err
			}

			var res *view.Interaction
			if serverURL != "" {
				c, err := newClient()
				if err != nil {
					return err
				}
				if res, err = c.Interact(token, kind); err != nil {
					return err
				}
				saveViewer(c)
			} else {
				kv, closeKV, err := openKV()
				if err != nil {
					return err
				}
				defer closeKV()

				loc, err := location()
				if err != nil {
					return err
				}
				if res, err = newService(kv, loc).Interact(token, "", kind, time.Now()); err != nil {
					return err
				}
			}

			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			if res.Accepted {
				fmt.Printf("%s marked as %s\n", green("✓"), kind)
			} else if res.Choice != "" {
				fmt.Printf("%s already marked as %s\n", yellow("•"), res.Choice)
			} else {
				fmt.Printf("%s could not record interaction\n", yellow("!"))
			}
			printStats(res.Stats)
			return nil
		},
	}
	interestCmd.Flags().StringVarP(&kindFlag, "kind", "k", string(intent.KindInterested), "Interaction kind (interested, here)")

	var statsCmd = &cobra.Command{
		Use:   "stats <token|url>",
		Short: "Show interaction counts for an intention",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := intent.ExtractToken(args[0])

			var stats intent.InteractionStats
			if serverURL != "" {
				c, err := newClient()
				if err != nil {
					return err
				}
				if stats, err = c.Stats(token); err != nil {
					return err
				}
				saveViewer(c)
			} else {
				kv, closeKV, err := openKV()
				if err != nil {
					return err
				}
				defer closeKV()

				if stats, err = newService(kv, time.Local).Stats(token); err != nil {
					return err
				}
			}
			printStats(stats)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "Local interaction store")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Talk to an intentlink server instead of the local store")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep interactions in memory only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Base URL share links point at")
	rootCmd.PersistentFlags().StringVar(&tzName, "tz", "", "Time zone for reading and showing times (default local)")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(interestCmd)
	rootCmd.AddCommand(statsCmd)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".intentlink", "db")
	}
	return filepath.Join(home, ".intentlink", "db")
}

var errNowWithServer = errors.New("--now only applies to the local store; the server renders at its own time")

// viewerPath is where the viewer ID a server issued is kept between runs.
func viewerPath() string {
	return filepath.Join(filepath.Dir(dbPath), "viewer")
}

func loadViewerID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveViewerID(path, id string) error {
	if id == "" || id == loadViewerID(path) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(id+"\n"), 0600)
}

// newClient returns a client that acts as the same viewer on every run.
func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithViewerID(loadViewerID(viewerPath())))
}

func saveViewer(c *client.Client) {
	if err := saveViewerID(viewerPath(), c.ViewerID()); err != nil {
		logger.Warn("saving viewer id", zap.String("path", viewerPath()), zap.Error(err))
	}
}

func location() (*time.Location, error) {
	if tzName == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", tzName, err)
	}
	return loc, nil
}

func newService(kv storage.KV, loc *time.Location) *view.Service {
	return view.NewService(nil, kv, view.Options{
		BaseURL:  baseURL,
		Location: loc,
		Limits:   intent.DefaultLimits,
	}, logger)
}

// openKV opens the local interaction store. The returned func closes it.
func openKV() (storage.KV, func(), error) {
	if ephemeral {
		return storage.NewMemoryKV(), func() {}, nil
	}

	db, err := storage.Open(dbPath, false)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("opened store", zap.String("path", dbPath))
	return storage.NewBadgerKV(db), func() { closeDB(db) }, nil
}

func closeDB(db *badger.DB) {
	if err := db.Close(); err != nil {
		logger.Warn("closing database", zap.Error(err))
	}
}

func printPage(page *view.Page) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\n%s\n", bold(page.Activity))
	when := page.When
	if page.Expired {
		when = red(when + " (expired)")
	}
	fmt.Printf("  when:  %s\n", when)
	if page.Place != "" {
		place := page.Place
		if page.PlaceCoarsened {
			place += faint(" (exact place shown closer to the time)")
		}
		fmt.Printf("  where: %s\n", place)
	}
	if page.Note != "" {
		fmt.Printf("  note:  %s\n", page.Note)
	}
	if page.Choice != "" {
		fmt.Printf("  you:   %s\n", page.Choice)
	}
	printStats(page.Stats)
	fmt.Println()
}

func printStats(stats intent.InteractionStats) {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("  %s interested, %s here\n",
		cyan(stats.InterestedCount),
		cyan(stats.HereCount),
	)
}

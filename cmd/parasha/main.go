// Command parasha resolves bar mitzvah portions from the terminal.
//
// Usage:
//
//	parasha resolve 1990-05-15 [--after-sunset] [--israel] [--json]
//	parasha catalog [--json]
//	parasha verses Bechukotai [--group 3] [--db data/barmitzva.db]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
	"github.com/AlmogShaul/bar-mitzva/internal/database"
	"github.com/AlmogShaul/bar-mitzva/internal/hebcal"
	"github.com/AlmogShaul/bar-mitzva/internal/logger"
	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
	"github.com/AlmogShaul/bar-mitzva/internal/selection"
	"github.com/AlmogShaul/bar-mitzva/internal/verses"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the shared flags and the seams tests replace.
type app struct {
	hebcalURL string
	timeout   time.Duration
	dbPath    string
	verbose   bool

	newGateway func(a *app, log *slog.Logger) (calendar.Gateway, error)
	loadCorpus func(ctx context.Context, a *app, log *slog.Logger) ([]verses.Verse, error)
}

func newApp() *app {
	return &app{
		newGateway: hebcalGateway,
		loadCorpus: databaseCorpus,
	}
}

func (a *app) logger() *slog.Logger {
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	return logger.New(os.Stderr, level, "text")
}

func hebcalGateway(a *app, log *slog.Logger) (calendar.Gateway, error) {
	client, err := hebcal.NewClient(a.hebcalURL, a.timeout, log)
	if err != nil {
		return nil, err
	}
	return hebcal.NewGateway(client, nil), nil
}

func databaseCorpus(ctx context.Context, a *app, log *slog.Logger) ([]verses.Verse, error) {
	if _, err := os.Stat(a.dbPath); err != nil {
		return nil, fmt.Errorf("database %s: %w (run cmd/import first)", a.dbPath, err)
	}
	db, err := database.Open(database.DefaultConfig(a.dbPath), log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return db.ListVerses(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parasha",
		Short: "Find the bar mitzvah Torah portion for a birth date",
		Long: `Resolve a civil birth date to the Shabbat of the thirteenth Hebrew
birthday and the Torah portion read on it.

Examples:
  parasha resolve 1990-05-15             # Diaspora schedule
  parasha resolve 1990-05-15 --israel    # Israeli schedule
  parasha catalog                        # list the 54 portions
  parasha verses Bechukotai --group 3    # practice verses in groups of 3
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.hebcalURL, "hebcal-url", hebcal.DefaultBaseURL, "Hebcal API base URL")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", hebcal.DefaultTimeout, "Calendar request timeout")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "data/barmitzva.db", "Path to SQLite database with the verse corpus")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging to stderr")

	cmd.AddCommand(a.resolveCmd(), a.catalogCmd(), a.versesCmd())
	return cmd
}

func (a *app) resolveCmd() *cobra.Command {
	var (
		afterSunset bool
		israel      bool
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <YYYY-MM-DD>",
		Short: "Resolve a birth date to its bar mitzvah Shabbat and portion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := a.logger()
			gw, err := a.newGateway(a, log)
			if err != nil {
				return err
			}

			pipeline := calendar.NewPipeline(gw, calendar.DefaultAnniversaryPolicy(), log)
			outcome := pipeline.Resolve(cmd.Context(), calendar.BirthInput{
				BirthDate:       args[0],
				BornAfterSunset: afterSunset,
				IsraelSchedule:  israel,
			})
			if !outcome.OK() {
				return outcome.Err()
			}

			sel, selErr := selection.Build(parasha.Default(), *outcome.Result)
			if outputJSON {
				return writeResolutionJSON(cmd.OutOrStdout(), outcome.Result, sel, selErr)
			}
			return writeResolution(cmd.OutOrStdout(), outcome.Result, sel, selErr)
		},
	}

	cmd.Flags().BoolVar(&afterSunset, "after-sunset", false, "Born after sunset (the Hebrew day had already begun)")
	cmd.Flags().BoolVar(&israel, "israel", false, "Use the Israeli reading schedule")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output the result as JSON")
	return cmd
}

func writeResolution(w io.Writer, r *calendar.ResolutionResult, sel selection.Selection, selErr error) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	birth := r.CivilBirth.String()
	if r.BornAfterSunset {
		birth += " (after sunset)"
	}
	fmt.Fprintf(tw, "Birth date:\t%s\n", birth)
	fmt.Fprintf(tw, "Hebrew birth date:\t%s\t%s\n", r.HebrewBirth, r.HebrewBirth.Gematriya())
	fmt.Fprintf(tw, "Hebrew anniversary:\t%s\t%s\n", r.HebrewAnniversary, r.HebrewAnniversary.Gematriya())
	fmt.Fprintf(tw, "Civil anniversary:\t%s\n", r.CivilAnniversary.Display())
	fmt.Fprintf(tw, "Bar mitzvah Shabbat:\t%s\n", r.ShabbatDate.Display())
	fmt.Fprintf(tw, "Schedule:\t%s\n", r.Schedule())

	switch {
	case selErr != nil:
		fmt.Fprintf(tw, "Reading:\t%s\n", selErr)
	case sel.InCatalog():
		fmt.Fprintf(tw, "Parasha:\t%s\t%s\n", sel.English, sel.Hebrew)
		for _, e := range sel.Entries {
			fmt.Fprintf(tw, "\t%s\t%s\n", e.English, e.Reference())
		}
	default:
		fmt.Fprintf(tw, "Reading:\t%s\n", sel.Name)
	}
	if !r.HasWeeklyPortion() && len(r.OtherReadings) > 1 {
		fmt.Fprintf(tw, "Also:\t%s\n", strings.Join(r.OtherReadings[1:], ", "))
	}
	return tw.Flush()
}

func writeResolutionJSON(w io.Writer, r *calendar.ResolutionResult, sel selection.Selection, selErr error) error {
	out := struct {
		*calendar.ResolutionResult
		Schedule string          `json:"schedule"`
		Portion  string          `json:"portion,omitempty"`
		Hebrew   string          `json:"portion_hebrew,omitempty"`
		Entries  []parasha.Entry `json:"entries,omitempty"`
		Note     string          `json:"note,omitempty"`
	}{ResolutionResult: r, Schedule: r.Schedule()}

	if selErr != nil {
		out.Note = selErr.Error()
	} else {
		out.Portion = sel.English
		out.Hebrew = sel.Hebrew
		out.Entries = sel.Entries
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (a *app) catalogCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the weekly Torah portions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := parasha.Default().All()
			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tPortion\tHebrew\tReading")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Number, e.English, e.Hebrew, e.Reference())
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output the catalog as JSON")
	return cmd
}

func (a *app) versesCmd() *cobra.Command {
	var group int

	cmd := &cobra.Command{
		Use:   "verses <portion>",
		Short: "Print the practice verses of a portion",
		Long: `Print the practice verses of a portion from the imported corpus.
Names are matched ignoring case, vowel points and apostrophes; combined
readings such as Behar-Bechukotai print both portions in order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if group < 0 {
				return fmt.Errorf("--group must not be negative, got %d", group)
			}

			corpus, err := a.loadCorpus(cmd.Context(), a, a.logger())
			if err != nil {
				return err
			}

			selector := verses.NewSelector(corpus, parasha.Default())
			vs := selector.Verses(args[0])
			if len(vs) == 0 {
				return fmt.Errorf("no verses for %q in %d loaded verses", args[0], len(corpus))
			}

			out := cmd.OutOrStdout()
			if group == 0 {
				for _, v := range vs {
					writeVerse(out, v)
				}
				return nil
			}
			for i, g := range selector.Groups(args[0], group) {
				fmt.Fprintf(out, "── Group %d ──\n", i+1)
				for _, v := range g {
					writeVerse(out, v)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&group, "group", 0, "Split the verses into groups of N (0 prints them flat)")
	return cmd
}

func writeVerse(w io.Writer, v verses.Verse) {
	fmt.Fprintf(w, "%s  %s\n", v.Ref(), v.Hebrew)
	if v.Transliteration != "" {
		fmt.Fprintf(w, "    %s\n", v.Transliteration)
	}
	if v.Translation != "" {
		fmt.Fprintf(w, "    %s\n", v.Translation)
	}
}

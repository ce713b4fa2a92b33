// Command coverage sweeps a range of birth dates through a running API and
// reports which portions they land on.
//
// Usage:
//
//	go run ./cmd/coverage -url http://localhost:8080 -start 1990 -years 2
//
// Every civil date in the range is posted to /api/v1/resolve. The report
// counts resolutions per reading, lists the catalog portions no birth date
// reached, and groups failures by error.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// APIResponse matches the API response envelope.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type resolveRequest struct {
	BirthDate       string `json:"birth_date"`
	BornAfterSunset bool   `json:"born_after_sunset"`
	IsraelSchedule  bool   `json:"israel_schedule"`
}

type resolveData struct {
	Resolution struct {
		ShabbatDate    string   `json:"shabbat_date"`
		WeeklyPortions []string `json:"weekly_portions"`
		OtherReadings  []string `json:"other_readings"`
	} `json:"resolution"`
	Actionable bool   `json:"actionable"`
	Reason     string `json:"reason"`
	Reading    *struct {
		Name      string `json:"name"`
		English   string `json:"english"`
		InCatalog bool   `json:"in_catalog"`
		Entries   []struct {
			English string `json:"english"`
		} `json:"entries"`
	} `json:"reading"`
}

type portionsData struct {
	Portions []struct {
		English string `json:"english"`
	} `json:"portions"`
}

// SweepResult holds the outcome for a single birth date.
type SweepResult struct {
	Date      string   `json:"date"`
	Success   bool     `json:"success"`
	Shabbat   string   `json:"shabbat,omitempty"`
	Reading   string   `json:"reading,omitempty"`
	InCatalog bool     `json:"in_catalog"`
	Portions  []string `json:"portions,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ReadingStats tracks how often a reading was selected.
type ReadingStats struct {
	Reading   string   `json:"reading"`
	InCatalog bool     `json:"in_catalog"`
	Births    int      `json:"births"`
	Shabbatot []string `json:"shabbatot"`
}

// Analysis holds the analyzed results.
type Analysis struct {
	TotalDays    int                      `json:"total_days"`
	TotalSuccess int                      `json:"total_success"`
	TotalFailed  int                      `json:"total_failed"`
	ByReading    map[string]*ReadingStats `json:"by_reading"`
	ByYear       map[int]*YearStats       `json:"by_year"`
	Unreached    []string                 `json:"unreached"`
	AllFailures  []SweepResult            `json:"failures"`
}

type YearStats struct {
	Year        int `json:"year"`
	TotalDays   int `json:"total_days"`
	SuccessDays int `json:"success_days"`
	FailedDays  int `json:"failed_days"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	startYear := flag.Int("start", 1990, "First birth year")
	years := flag.Int("years", 1, "Number of birth years to sweep")
	israel := flag.Bool("israel", false, "Use the Israeli reading schedule")
	verbose := flag.Bool("v", false, "Verbose output (show each date)")
	outputFile := flag.String("o", "", "Output results to JSON file")
	flag.Parse()

	endYear := *startYear + *years - 1

	fmt.Println("================================================================")
	fmt.Println("Bar Mitzvah API - Portion Coverage")
	fmt.Println("================================================================")
	fmt.Printf("Base URL:    %s\n", *baseURL)
	fmt.Printf("Births:      %d-01-01 to %d-12-31\n", *startYear, endYear)
	fmt.Printf("Schedule:    %s\n", schedule(*israel))
	fmt.Println()

	client := &http.Client{Timeout: 30 * time.Second}
	if _, err := client.Get(*baseURL + "/health"); err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}

	catalog, err := fetchCatalog(client, *baseURL)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	results := sweep(client, *baseURL, birthDates(*startYear, endYear), *israel, *verbose)
	analysis := analyze(results, catalog)

	printSummary(analysis, *startYear, endYear)
	printReadings(analysis)
	printFailures(analysis)

	if *outputFile != "" {
		saveResults(*outputFile, analysis)
	}

	if analysis.TotalFailed > 0 {
		os.Exit(1)
	}
}

func schedule(israel bool) string {
	if israel {
		return "Israel"
	}
	return "Diaspora"
}

// birthDates lists every civil date from January 1 of startYear through
// December 31 of endYear.
func birthDates(startYear, endYear int) []string {
	var dates []string
	current := time.Date(startYear, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, 12, 31, 0, 0, 0, 0, time.UTC)
	for !current.After(end) {
		dates = append(dates, current.Format("2006-01-02"))
		current = current.AddDate(0, 0, 1)
	}
	return dates
}

func fetchCatalog(client *http.Client, baseURL string) ([]string, error) {
	resp, err := client.Get(baseURL + "/api/v1/portions")
	if err != nil {
		return nil, fmt.Errorf("fetch portions: %w", err)
	}
	defer resp.Body.Close()

	var data portionsData
	if err := decodeEnvelope(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("fetch portions: %w", err)
	}

	names := make([]string, 0, len(data.Portions))
	for _, p := range data.Portions {
		names = append(names, p.English)
	}
	return names, nil
}

func sweep(client *http.Client, baseURL string, dates []string, israel, verbose bool) []SweepResult {
	fmt.Printf("Resolving %d birth dates...\n\n", len(dates))

	results := make([]SweepResult, 0, len(dates))
	failed := 0
	lastProgress := -1

	for i, date := range dates {
		result := resolveDate(client, baseURL, date, israel)
		results = append(results, result)
		if !result.Success {
			failed++
		}

		progress := ((i + 1) * 100) / len(dates)
		if progress != lastProgress && progress%10 == 0 {
			fmt.Printf("  Progress: %d%% (%d/%d) - Failures: %d\n", progress, i+1, len(dates), failed)
			lastProgress = progress
		}

		if verbose {
			if result.Success {
				fmt.Printf("  ✓ %s → %s: %s\n", date, result.Shabbat, result.Reading)
			} else {
				fmt.Printf("  ✗ %s: %s\n", date, result.Error)
			}
		}
	}

	fmt.Println()
	return results
}

func resolveDate(client *http.Client, baseURL, date string, israel bool) SweepResult {
	result := SweepResult{Date: date}

	body, err := json.Marshal(resolveRequest{BirthDate: date, IsraelSchedule: israel})
	if err != nil {
		result.Error = fmt.Sprintf("Encode error: %v", err)
		return result
	}

	resp, err := client.Post(baseURL+"/api/v1/resolve", "application/json", bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("Connection error: %v", err)
		return result
	}
	defer resp.Body.Close()

	var data resolveData
	if err := decodeEnvelope(resp.Body, &data); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Shabbat = data.Resolution.ShabbatDate
	if !data.Actionable || data.Reading == nil {
		result.Error = "Not actionable: " + data.Reason
		return result
	}

	result.Success = true
	result.Reading = data.Reading.English
	if result.Reading == "" {
		result.Reading = data.Reading.Name
	}
	result.InCatalog = data.Reading.InCatalog
	for _, e := range data.Reading.Entries {
		result.Portions = append(result.Portions, e.English)
	}
	return result
}

func decodeEnvelope(r io.Reader, target any) error {
	var apiResp APIResponse
	if err := json.NewDecoder(r).Decode(&apiResp); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if !apiResp.Success {
		msg := "unknown error"
		if apiResp.Error != nil {
			msg = apiResp.Error.Message
			if apiResp.Error.Code != "" {
				msg = apiResp.Error.Code + ": " + msg
			}
		}
		return fmt.Errorf("API error: %s", msg)
	}
	if err := json.Unmarshal(apiResp.Data, target); err != nil {
		return fmt.Errorf("data parse error: %w", err)
	}
	return nil
}

func analyze(results []SweepResult, catalog []string) *Analysis {
	analysis := &Analysis{
		ByReading: make(map[string]*ReadingStats),
		ByYear:    make(map[int]*YearStats),
	}

	reached := make(map[string]bool)
	for _, r := range results {
		analysis.TotalDays++

		year := 0
		if date, err := time.Parse("2006-01-02", r.Date); err == nil {
			year = date.Year()
		}
		if _, ok := analysis.ByYear[year]; !ok {
			analysis.ByYear[year] = &YearStats{Year: year}
		}
		analysis.ByYear[year].TotalDays++

		if !r.Success {
			analysis.TotalFailed++
			analysis.ByYear[year].FailedDays++
			analysis.AllFailures = append(analysis.AllFailures, r)
			continue
		}

		analysis.TotalSuccess++
		analysis.ByYear[year].SuccessDays++

		stats, ok := analysis.ByReading[r.Reading]
		if !ok {
			stats = &ReadingStats{Reading: r.Reading, InCatalog: r.InCatalog}
			analysis.ByReading[r.Reading] = stats
		}
		stats.Births++
		if n := len(stats.Shabbatot); n == 0 || stats.Shabbatot[n-1] != r.Shabbat {
			stats.Shabbatot = append(stats.Shabbatot, r.Shabbat)
		}
		for _, p := range r.Portions {
			reached[p] = true
		}
	}

	for _, name := range catalog {
		if !reached[name] {
			analysis.Unreached = append(analysis.Unreached, name)
		}
	}
	return analysis
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func printSummary(analysis *Analysis, startYear, endYear int) {
	fmt.Println("================================================================")
	fmt.Println("SUMMARY")
	fmt.Println("================================================================")
	fmt.Printf("Birth Dates:   %d\n", analysis.TotalDays)
	fmt.Printf("Resolved:      %d (%.1f%%)\n", analysis.TotalSuccess, percent(analysis.TotalSuccess, analysis.TotalDays))
	fmt.Printf("Failed:        %d (%.1f%%)\n", analysis.TotalFailed, percent(analysis.TotalFailed, analysis.TotalDays))
	fmt.Printf("Readings:      %d\n", len(analysis.ByReading))
	fmt.Println()

	fmt.Println("By Birth Year:")
	for year := startYear; year <= endYear; year++ {
		if stats, ok := analysis.ByYear[year]; ok {
			status := "✓"
			if stats.FailedDays > 0 {
				status = "✗"
			}
			fmt.Printf("  %s %d: %d/%d dates (%.1f%% resolved)\n",
				status, year, stats.SuccessDays, stats.TotalDays, percent(stats.SuccessDays, stats.TotalDays))
		}
	}
	fmt.Println()
}

func printReadings(analysis *Analysis) {
	fmt.Println("================================================================")
	fmt.Println("READINGS (births per reading)")
	fmt.Println("================================================================")

	readings := make([]*ReadingStats, 0, len(analysis.ByReading))
	for _, stats := range analysis.ByReading {
		readings = append(readings, stats)
	}
	sort.Slice(readings, func(i, j int) bool {
		if readings[i].Births != readings[j].Births {
			return readings[i].Births > readings[j].Births
		}
		return readings[i].Reading < readings[j].Reading
	})

	for _, stats := range readings {
		marker := " "
		if !stats.InCatalog {
			marker = "*"
		}
		fmt.Printf("  %s %-28s %4d births, %d Shabbatot\n", marker, stats.Reading, stats.Births, len(stats.Shabbatot))
	}
	fmt.Println("  (* not in the portion catalog)")
	fmt.Println()

	if len(analysis.Unreached) > 0 {
		fmt.Printf("Portions no birth date reached (%d):\n", len(analysis.Unreached))
		fmt.Printf("  %s\n\n", strings.Join(analysis.Unreached, ", "))
	}
}

func printFailures(analysis *Analysis) {
	if analysis.TotalFailed == 0 {
		fmt.Println("No failures!")
		return
	}

	fmt.Println("================================================================")
	fmt.Println("FAILURES (grouped by error)")
	fmt.Println("================================================================")

	groups := make(map[string][]SweepResult)
	var order []string
	for _, f := range analysis.AllFailures {
		if _, ok := groups[f.Error]; !ok {
			order = append(order, f.Error)
		}
		groups[f.Error] = append(groups[f.Error], f)
	}

	for _, errMsg := range order {
		failures := groups[errMsg]
		fmt.Printf("\nError: %s (%d occurrences)\n", errMsg, len(failures))
		for i, f := range failures {
			if i >= 5 {
				fmt.Printf("  ... and %d more\n", len(failures)-5)
				break
			}
			fmt.Printf("  - %s\n", f.Date)
		}
	}
	fmt.Println()
}

func saveResults(filename string, analysis *Analysis) {
	output := struct {
		GeneratedAt string    `json:"generated_at"`
		Analysis    *Analysis `json:"analysis"`
	}{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Analysis:    analysis,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling results: %v\n", err)
		return
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		fmt.Printf("Error writing file: %v\n", err)
		return
	}

	fmt.Printf("Results saved to: %s\n", filename)
}

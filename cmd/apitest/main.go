package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status       string `json:"status"`
	Verses       int    `json:"verses"`
	StoredVerses int    `json:"stored_verses"`
	Portions     int    `json:"portions"`
	Selection    bool   `json:"selection"`
}

type Entry struct {
	Number  int    `json:"number"`
	English string `json:"english"`
	Hebrew  string `json:"hebrew"`
	Book    string `json:"book"`
	Range   string `json:"range"`
}

type ReadingView struct {
	Name      string  `json:"name"`
	English   string  `json:"english"`
	Hebrew    string  `json:"hebrew"`
	InCatalog bool    `json:"in_catalog"`
	Entries   []Entry `json:"entries"`
}

// PortionsResponse is the response for /api/v1/portions
type PortionsResponse struct {
	Count    int     `json:"count"`
	Portions []Entry `json:"portions"`
}

// PortionResponse is the response for /api/v1/portions/{name}
type PortionResponse struct {
	ReadingView
	VerseCount int `json:"verse_count"`
}

type HebrewDateView struct {
	Display string `json:"display"`
	Hebrew  string `json:"hebrew"`
}

// ResolveResponse is the response for /api/v1/resolve
type ResolveResponse struct {
	Resolution struct {
		CivilBirth       string         `json:"civil_birth"`
		CivilAnniversary string         `json:"civil_anniversary"`
		ShabbatDate      string         `json:"shabbat_date"`
		WeeklyPortions   []string       `json:"weekly_portions"`
		OtherReadings    []string       `json:"other_readings"`
		HebrewBirth      HebrewDateView `json:"hebrew_birth"`
	} `json:"resolution"`
	Schedule   string       `json:"schedule"`
	HebrewDate string       `json:"hebrew_birth_display"`
	Actionable bool         `json:"actionable"`
	Reason     string       `json:"reason"`
	Reading    *ReadingView `json:"reading"`
}

// VersesResponse is the response for the verse endpoints
type VersesResponse struct {
	Portion string            `json:"portion"`
	Count   int               `json:"count"`
	Verses  []json.RawMessage `json:"verses"`
	Groups  [][]any           `json:"groups"`
	Size    int               `json:"group_size"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	verbose      bool
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL, apiKey string, verbose bool) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		verbose: verbose,
	}
}

func (tr *TestRunner) Run() {
	fmt.Println("==============================================")
	fmt.Println("Bar Mitzvah API Test Suite")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	fmt.Println()

	// Run test groups
	tr.testHealth()
	tr.testPortions()
	tr.testResolve()
	tr.testEdgeCases()
	if tr.apiKey != "" {
		tr.testSelectionFlow()
	} else {
		fmt.Println()
		fmt.Println("(selection flow skipped: pass -key to change the stored selection)")
	}

	// Print summary
	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	var health HealthResponse
	if err := tr.getData("/health", &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess(fmt.Sprintf("Health check passed (%d verses, %d portions)", health.Verses, health.Portions))
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
	if health.Verses == 0 {
		tr.recordError("Health", "Verse corpus is empty; run cmd/import")
	}
	if health.StoredVerses != health.Verses {
		tr.recordError("Health", fmt.Sprintf("Loaded %d verses but %d are stored; send SIGHUP to reload", health.Verses, health.StoredVerses))
	}

	resp, err := tr.client.Get(tr.baseURL + "/metrics")
	if err != nil {
		tr.recordError("Metrics", err.Error())
		return
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK && bytes.Contains(body, []byte("barmitzva_http_requests_total")) {
		tr.recordSuccess("Metrics exposed")
	} else {
		tr.recordError("Metrics", fmt.Sprintf("HTTP %d without request counter", resp.StatusCode))
	}
}

func (tr *TestRunner) testPortions() {
	tr.printSection("Portion Catalog")

	var list PortionsResponse
	if err := tr.getData("/api/v1/portions", &list); err != nil {
		tr.recordError("List portions", err.Error())
		return
	}
	if list.Count == 54 {
		tr.recordSuccess("Catalog lists 54 portions")
	} else {
		tr.recordError("List portions", fmt.Sprintf("Expected 54 portions, got %d", list.Count))
	}

	testCases := []struct {
		name        string
		wantEnglish string
		description string
	}{
		{"Bereshit", "Bereshit", "English name"},
		{"bereishit", "Bereshit", "Alias, lower case"},
		{"Lech-Lecha", "Lech-Lecha", "Hyphenated single portion"},
		{"Behar-Bechukotai", "Behar-Bechukotai", "Combined reading"},
		{"בְּחֻקֹּתַי", "Bechukotai", "Pointed Hebrew"},
		{"Vayakhel-Pekudei", "Vayakhel-Pekudei", "Combined reading"},
	}

	for _, tc := range testCases {
		var p PortionResponse
		if err := tr.getData("/api/v1/portions/"+url.PathEscape(tc.name), &p); err != nil {
			tr.recordError(tc.name, err.Error())
			continue
		}
		if p.English == tc.wantEnglish {
			tr.recordSuccess(fmt.Sprintf("%s → %s (%s, %d verses)", tc.name, p.English, tc.description, p.VerseCount))
		} else {
			tr.recordError(tc.name, fmt.Sprintf("Expected '%s', got '%s'", tc.wantEnglish, p.English))
		}
		if tr.verbose {
			tr.printEntries(p.Entries)
		}
	}

	var vs VersesResponse
	if err := tr.getData("/api/v1/portions/Bechukotai/verses?size=3", &vs); err != nil {
		tr.recordError("Grouped verses", err.Error())
	} else if vs.Size == 3 && len(vs.Groups) > 0 {
		tr.recordSuccess(fmt.Sprintf("Bechukotai: %d verses in %d groups of 3", vs.Count, len(vs.Groups)))
	} else {
		tr.recordError("Grouped verses", fmt.Sprintf("Expected groups of 3, got size %d with %d groups", vs.Size, len(vs.Groups)))
	}
}

func (tr *TestRunner) testResolve() {
	tr.printSection("Resolution Tests")

	testCases := []struct {
		input       map[string]any
		wantShabbat string
		wantReading string
		description string
	}{
		{map[string]any{"birth_date": "1990-05-15"}, "2003-05-24", "Bechukotai", "Diaspora, May 1990"},
		{map[string]any{"birth_date": "1990-05-15", "born_after_sunset": true}, "2003-05-24", "Bechukotai", "After sunset, same Shabbat"},
		{map[string]any{"birth_date": "2000-02-29"}, "", "", "Civil leap day"},
		{map[string]any{"birth_date": "1990-05-15", "israel_schedule": true}, "2003-05-24", "", "Israeli schedule"},
	}

	for _, tc := range testCases {
		var data ResolveResponse
		if err := tr.postData("/api/v1/resolve", tc.input, &data); err != nil {
			tr.recordError(tc.description, err.Error())
			continue
		}

		res := data.Resolution
		if tc.wantShabbat != "" && res.ShabbatDate != tc.wantShabbat {
			tr.recordError(tc.description, fmt.Sprintf("Expected Shabbat %s, got %s", tc.wantShabbat, res.ShabbatDate))
			continue
		}
		reading := "(none)"
		if data.Reading != nil {
			reading = data.Reading.English
			if reading == "" {
				reading = data.Reading.Name
			}
		}
		if tc.wantReading != "" && reading != tc.wantReading {
			tr.recordError(tc.description, fmt.Sprintf("Expected reading '%s', got '%s'", tc.wantReading, reading))
			continue
		}

		tr.recordSuccess(fmt.Sprintf("%s → %s %s [%s] (%s)",
			res.CivilBirth, res.ShabbatDate, reading, data.Schedule, tc.description))
		if tr.verbose {
			fmt.Printf("    Hebrew birth: %s (%s)\n", res.HebrewBirth.Display, data.HebrewDate)
			fmt.Printf("    Anniversary:  %s\n", res.CivilAnniversary)
			if len(res.OtherReadings) > 0 {
				fmt.Printf("    Also read:    %v\n", res.OtherReadings)
			}
			fmt.Println()
		}
	}

	var early ResolveResponse
	if err := tr.postData("/api/v1/resolve", map[string]any{"birth_date": "1899-06-01"}, &early); err != nil {
		tr.recordError("Early birth", err.Error())
	} else if !early.Actionable && early.Reason != "" {
		tr.recordSuccess("Birth before 1901 resolves but is not actionable")
	} else {
		tr.recordError("Early birth", "Should not be actionable")
	}
}

func (tr *TestRunner) testEdgeCases() {
	tr.printSection("Edge Cases")

	statusCases := []struct {
		method      string
		path        string
		body        string
		wantStatus  int
		wantCode    string
		description string
	}{
		{http.MethodPost, "/api/v1/resolve", `{"birth_date":"15/05/1990"}`, 400, "INVALID_INPUT", "Wrong date format rejected"},
		{http.MethodPost, "/api/v1/resolve", `{"birth_date":"1990-02-30"}`, 400, "INVALID_INPUT", "Impossible date rejected"},
		{http.MethodPost, "/api/v1/resolve", `{}`, 400, "INVALID_INPUT", "Missing birth date rejected"},
		{http.MethodPost, "/api/v1/resolve", `{"birth_date":`, 400, "INVALID_INPUT", "Malformed JSON rejected"},
		{http.MethodGet, "/api/v1/portions/NotAPortion", "", 404, "NOT_FOUND", "Unknown portion"},
		{http.MethodGet, "/api/v1/portions/Behar-Nope", "", 404, "NOT_FOUND", "Combined reading with unknown part"},
		{http.MethodGet, "/api/v1/portions/Bechukotai/verses?size=0", "", 400, "", "Group size below 1 rejected"},
		{http.MethodPut, "/api/v1/selection", `{"birth_date":"1990-05-15"}`, 401, "", "Selection change without key rejected"},
		{http.MethodGet, "/api/v1/nowhere", "", 404, "NOT_FOUND", "Unknown route"},
	}

	for _, tc := range statusCases {
		resp, err := tr.do(tc.method, tc.path, tc.body, false)
		if err != nil {
			tr.recordError(tc.description, err.Error())
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != tc.wantStatus {
			tr.recordError(tc.description, fmt.Sprintf("Expected HTTP %d, got %d", tc.wantStatus, resp.StatusCode))
			continue
		}
		if tc.wantCode != "" {
			var apiResp APIResponse
			if err := json.Unmarshal(body, &apiResp); err != nil || apiResp.Error == nil || apiResp.Error.Code != tc.wantCode {
				tr.recordError(tc.description, fmt.Sprintf("Expected error code %s in %s", tc.wantCode, body))
				continue
			}
		}
		tr.recordSuccess(tc.description)
	}
}

func (tr *TestRunner) testSelectionFlow() {
	tr.printSection("Selection Flow")

	var sel struct {
		Reading     ReadingView `json:"reading"`
		VerseCount  int         `json:"verse_count"`
		ConfirmedAt time.Time   `json:"confirmed_at"`
	}
	if err := tr.sendData(http.MethodPut, "/api/v1/selection", map[string]any{"birth_date": "1990-05-15"}, &sel); err != nil {
		tr.recordError("Confirm selection", err.Error())
		return
	}
	tr.recordSuccess(fmt.Sprintf("Selected %s (%d verses)", sel.Reading.English, sel.VerseCount))

	if err := tr.getData("/api/v1/selection", &sel); err != nil {
		tr.recordError("Read selection", err.Error())
	} else {
		tr.recordSuccess(fmt.Sprintf("Stored selection: %s, confirmed %s", sel.Reading.English, sel.ConfirmedAt.Format(time.RFC3339)))
	}

	var vs VersesResponse
	if err := tr.getData("/api/v1/selection/verses?grouped=true", &vs); err != nil {
		tr.recordError("Selection verses", err.Error())
	} else {
		tr.recordSuccess(fmt.Sprintf("Selection verses: %d in %d groups", vs.Count, len(vs.Groups)))
	}

	resp, err := tr.do(http.MethodGet, "/api/v1/selection/calendar.ics", "", false)
	if err != nil {
		tr.recordError("Calendar export", err.Error())
	} else {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK &&
			strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar") &&
			bytes.Contains(body, []byte("BEGIN:VEVENT")) {
			tr.recordSuccess("Calendar export is an iCalendar event")
		} else {
			tr.recordError("Calendar export", fmt.Sprintf("HTTP %d, Content-Type %q", resp.StatusCode, resp.Header.Get("Content-Type")))
		}
	}

	resp, err = tr.do(http.MethodPut, "/api/v1/selection", `{"birth_date":"1899-06-01"}`, true)
	if err != nil {
		tr.recordError("Early selection", err.Error())
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnprocessableEntity {
			tr.recordSuccess("Birth before 1901 cannot be selected")
		} else {
			tr.recordError("Early selection", fmt.Sprintf("Expected HTTP 422, got %d", resp.StatusCode))
		}
	}

	var cleared map[string]bool
	if err := tr.sendData(http.MethodDelete, "/api/v1/selection", nil, &cleared); err != nil {
		tr.recordError("Clear selection", err.Error())
		return
	}
	resp, err = tr.do(http.MethodGet, "/api/v1/selection", "", false)
	if err != nil {
		tr.recordError("Clear selection", err.Error())
		return
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		tr.recordSuccess("Selection cleared")
	} else {
		tr.recordError("Clear selection", fmt.Sprintf("Expected HTTP 404 after clear, got %d", resp.StatusCode))
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

func (tr *TestRunner) do(method, path, body string, withKey bool) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, tr.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if withKey {
		req.Header.Set("X-API-Key", tr.apiKey)
	}
	return tr.client.Do(req)
}

func (tr *TestRunner) getData(path string, target any) error {
	resp, err := tr.do(http.MethodGet, path, "", false)
	if err != nil {
		return err
	}
	return tr.parseData(resp, target)
}

func (tr *TestRunner) postData(path string, payload, target any) error {
	return tr.send(http.MethodPost, path, payload, target, false)
}

func (tr *TestRunner) sendData(method, path string, payload, target any) error {
	return tr.send(method, path, payload, target, true)
}

func (tr *TestRunner) send(method, path string, payload, target any, withKey bool) error {
	body := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		body = string(b)
	}
	resp, err := tr.do(method, path, body, withKey)
	if err != nil {
		return err
	}
	return tr.parseData(resp, target)
}

func (tr *TestRunner) parseData(resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	if !apiResp.Success {
		errMsg := "unknown error"
		if apiResp.Error != nil {
			errMsg = apiResp.Error.Message
		}
		return fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, errMsg)
	}

	return json.Unmarshal(apiResp.Data, target)
}

func (tr *TestRunner) printSection(name string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", name)
	fmt.Println()
}

func (tr *TestRunner) printEntries(entries []Entry) {
	for _, e := range entries {
		fmt.Printf("      %2d. %s (%s) %s %s\n", e.Number, e.English, e.Hebrew, e.Book, e.Range)
	}
	fmt.Println()
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
	}

	if tr.errorCount == 0 {
		fmt.Println("All tests passed! ✓")
	} else {
		fmt.Printf("Tests completed with %d failure(s)\n", tr.errorCount)
	}
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	apiKey := flag.String("key", "", "API key; enables the selection flow, which replaces the stored selection")
	verbose := flag.Bool("v", false, "Verbose output (show resolution details)")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	if _, err := client.Get(*baseURL + "/health"); err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}

	runner := NewTestRunner(*baseURL, *apiKey, *verbose)
	runner.Run()

	// Exit with error code if tests failed
	if runner.errorCount > 0 {
		os.Exit(1)
	}
}

package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
	"github.com/AlmogShaul/bar-mitzva/internal/compare"
	"github.com/AlmogShaul/bar-mitzva/internal/config"
	"github.com/AlmogShaul/bar-mitzva/internal/database"
	"github.com/AlmogShaul/bar-mitzva/internal/export"
	"github.com/AlmogShaul/bar-mitzva/internal/logger"
	"github.com/AlmogShaul/bar-mitzva/internal/metrics"
	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
	"github.com/AlmogShaul/bar-mitzva/internal/selection"
	"github.com/AlmogShaul/bar-mitzva/internal/verses"
)

const (
	// maxGroupSize bounds the size query parameter.
	maxGroupSize = verses.MaxGroupSize

	// maxAudioBytes caps an uploaded practice recording.
	maxAudioBytes = 20 << 20

	maxSessionLen = 128
)

// Deps are the collaborators the handlers serve from.
type Deps struct {
	DB        *database.DB
	Pipeline  *calendar.Pipeline
	Catalog   *parasha.Catalog
	Selector  *verses.Selector
	Selection *selection.State
	Compare   *compare.Client // nil disables the practice endpoints
	Metrics   *metrics.Metrics
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	Deps
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, cfg *config.Config, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		Deps:   deps,
		cfg:    cfg,
		logger: log,
	}
}

func (h *Handlers) log(r *http.Request) *slog.Logger {
	return logger.FromContext(r.Context(), h.logger)
}

// =============================================================================
// Response shapes
// =============================================================================

// ReadingView describes a reading and how it maps onto the catalog.
type ReadingView struct {
	Name      string          `json:"name"`
	English   string          `json:"english"`
	Hebrew    string          `json:"hebrew"`
	InCatalog bool            `json:"in_catalog"`
	Entries   []parasha.Entry `json:"entries"`
}

func readingOf(sel selection.Selection) ReadingView {
	return ReadingView{
		Name:      sel.Name,
		English:   sel.English,
		Hebrew:    sel.Hebrew,
		InCatalog: sel.InCatalog(),
		Entries:   sel.Entries,
	}
}

// ResolveResponse is the reply to POST /api/v1/resolve. Reading is nil when
// the result cannot become a selection; Reason then says why.
type ResolveResponse struct {
	Resolution *calendar.ResolutionResult `json:"resolution"`
	Schedule   string                     `json:"schedule"`
	HebrewDate string                     `json:"hebrew_birth_display"`
	Actionable bool                       `json:"actionable"`
	Reason     string                     `json:"reason,omitempty"`
	Reading    *ReadingView               `json:"reading,omitempty"`
}

// SelectionResponse is the current selection.
type SelectionResponse struct {
	Reading     ReadingView               `json:"reading"`
	Resolution  calendar.ResolutionResult `json:"resolution"`
	ConfirmedAt time.Time                 `json:"confirmed_at"`
	VerseCount  int                       `json:"verse_count"`
}

// VersesResponse lists verses flat or grouped.
type VersesResponse struct {
	Portion string           `json:"portion"`
	Count   int              `json:"count"`
	Verses  []verses.Verse   `json:"verses,omitempty"`
	Groups  [][]verses.Verse `json:"groups,omitempty"`
	Size    int              `json:"group_size,omitempty"`
}

// PortionResponse is one catalog lookup.
type PortionResponse struct {
	ReadingView
	VerseCount int `json:"verse_count"`
}

// =============================================================================
// Health & catalog
// =============================================================================

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Check database health
	if err := h.DB.Health(ctx); err != nil {
		h.log(r).Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	stored, err := h.DB.CountVerses(ctx)
	if err != nil {
		h.log(r).Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	_, selected := h.Selection.Current()
	WriteSuccess(w, map[string]any{
		"status":        "healthy",
		"verses":        h.Selector.Len(),
		"stored_verses": stored,
		"portions":      h.Catalog.Len(),
		"selection":     selected,
	})
}

// ListPortions handles GET /api/v1/portions
func (h *Handlers) ListPortions(w http.ResponseWriter, r *http.Request) {
	all := h.Catalog.All()
	WriteSuccess(w, map[string]any{
		"count":    len(all),
		"portions": all,
	})
}

// GetPortion handles GET /api/v1/portions/{name}
func (h *Handlers) GetPortion(w http.ResponseWriter, r *http.Request) {
	name, ok := portionParam(w, r)
	if !ok {
		return
	}

	entries, found := h.Catalog.LookupReading(name)
	if !found {
		WriteNotFound(w, fmt.Sprintf("Unknown portion: %s", name))
		return
	}

	WriteSuccess(w, PortionResponse{
		ReadingView: ReadingView{
			Name:      name,
			English:   parasha.JoinEnglish(entries),
			Hebrew:    parasha.JoinHebrew(entries),
			InCatalog: true,
			Entries:   entries,
		},
		VerseCount: len(h.Selector.Verses(name)),
	})
}

// GetPortionVerses handles GET /api/v1/portions/{name}/verses?grouped=&size=
func (h *Handlers) GetPortionVerses(w http.ResponseWriter, r *http.Request) {
	name, ok := portionParam(w, r)
	if !ok {
		return
	}
	h.writeVerses(w, r, name)
}

func portionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "name")
	name, err := url.PathUnescape(raw)
	if err != nil || parasha.Normalize(name) == "" {
		WriteBadRequest(w, "Portion name is required")
		return "", false
	}
	return name, true
}

// =============================================================================
// Resolution & selection
// =============================================================================

// Resolve handles POST /api/v1/resolve. Nothing is persisted.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	in, err := decodeJSON[calendar.BirthInput](w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, bindMessage(err), string(calendar.KindInvalidInput))
		return
	}

	outcome := h.resolve(r, in)
	if !outcome.OK() {
		WriteFailure(w, outcome.Failure)
		return
	}

	res := outcome.Result
	resp := ResolveResponse{
		Resolution: res,
		Schedule:   res.Schedule(),
		HebrewDate: res.HebrewBirth.Gematriya(),
	}
	sel, err := selection.Build(h.Catalog, *res)
	if err != nil {
		resp.Reason = err.Error()
	} else {
		view := readingOf(sel)
		resp.Actionable = true
		resp.Reading = &view
	}
	WriteSuccess(w, resp)
}

func (h *Handlers) resolve(r *http.Request, in calendar.BirthInput) calendar.Outcome {
	outcome := h.Pipeline.Resolve(r.Context(), in)
	if outcome.OK() {
		h.Metrics.ObserveResolution("ok")
		return outcome
	}

	h.Metrics.ObserveResolution(string(outcome.Failure.Kind))
	if outcome.Failure.Kind == calendar.KindCalendarConversion {
		h.log(r).Error("resolution failed",
			slog.String("birth_date", in.BirthDate),
			slog.Any("error", outcome.Failure.Err),
		)
	}
	return outcome
}

// GetSelection handles GET /api/v1/selection
func (h *Handlers) GetSelection(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.Selection.Current()
	if !ok {
		WriteNotFound(w, "No portion has been selected")
		return
	}
	WriteSuccess(w, h.selectionResponse(sel))
}

// PutSelection handles PUT /api/v1/selection: resolve, confirm and persist.
func (h *Handlers) PutSelection(w http.ResponseWriter, r *http.Request) {
	in, err := decodeJSON[calendar.BirthInput](w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, bindMessage(err), string(calendar.KindInvalidInput))
		return
	}

	outcome := h.resolve(r, in)
	if !outcome.OK() {
		WriteFailure(w, outcome.Failure)
		return
	}

	sel, err := h.Selection.Confirm(r.Context(), *outcome.Result)
	switch {
	case errors.Is(err, selection.ErrNotActionable):
		WriteUnprocessable(w, err.Error(), "NOT_ACTIONABLE")
		return
	case errors.Is(err, selection.ErrNoReading):
		WriteUnprocessable(w, err.Error(), "NO_READING")
		return
	case err != nil:
		h.log(r).Error("failed to confirm selection", slog.Any("error", err))
		WriteInternalError(w, "Failed to save selection")
		return
	}

	WriteSuccess(w, h.selectionResponse(sel))
}

// DeleteSelection handles DELETE /api/v1/selection
func (h *Handlers) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.Selection.Clear(r.Context()); err != nil {
		h.log(r).Error("failed to clear selection", slog.Any("error", err))
		WriteInternalError(w, "Failed to clear selection")
		return
	}
	WriteSuccess(w, map[string]bool{"cleared": true})
}

// GetSelectionVerses handles GET /api/v1/selection/verses?grouped=&size=
func (h *Handlers) GetSelectionVerses(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.Selection.Current()
	if !ok {
		WriteNotFound(w, "No portion has been selected")
		return
	}
	h.writeVerses(w, r, sel.Name)
}

// GetSelectionCalendar handles GET /api/v1/selection/calendar.ics
func (h *Handlers) GetSelectionCalendar(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.Selection.Current()
	if !ok {
		WriteNotFound(w, "No portion has been selected")
		return
	}

	data, err := export.Calendar(sel)
	if err != nil {
		h.log(r).Error("failed to render calendar", slog.Any("error", err))
		WriteInternalError(w, "Failed to render calendar")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="bar-mitzvah.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) selectionResponse(sel selection.Selection) SelectionResponse {
	return SelectionResponse{
		Reading:     readingOf(sel),
		Resolution:  sel.Resolution,
		ConfirmedAt: sel.ConfirmedAt,
		VerseCount:  len(h.Selector.Verses(sel.Name)),
	}
}

// =============================================================================
// Verses
// =============================================================================

func (h *Handlers) writeVerses(w http.ResponseWriter, r *http.Request, portion string) {
	grouped, size, err := h.groupParams(r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	resp := VersesResponse{Portion: portion}
	if grouped {
		groups := h.Selector.Groups(portion, size)
		resp.Groups = make([][]verses.Verse, len(groups))
		for i, g := range groups {
			resp.Groups[i] = withAudio(g)
			resp.Count += len(g)
		}
		resp.Size = size
	} else {
		resp.Verses = withAudio(h.Selector.Verses(portion))
		resp.Count = len(resp.Verses)
	}
	WriteSuccess(w, resp)
}

func (h *Handlers) groupParams(r *http.Request) (grouped bool, size int, err error) {
	q := r.URL.Query()

	if s := q.Get("grouped"); s != "" {
		grouped, err = strconv.ParseBool(s)
		if err != nil {
			return false, 0, fmt.Errorf("grouped must be true or false, got %q", s)
		}
	}

	size = h.cfg.GroupSize
	if s := q.Get("size"); s != "" {
		size, err = strconv.Atoi(s)
		if err != nil || size < 1 || size > maxGroupSize {
			return false, 0, fmt.Errorf("size must be between 1 and %d, got %q", maxGroupSize, s)
		}
		grouped = true
	}
	if size <= 0 {
		size = verses.DefaultGroupSize
	}
	return grouped, size, nil
}

// withAudio copies vs with every audio URL filled in. The selector's slices
// are shared and stay untouched.
func withAudio(vs []verses.Verse) []verses.Verse {
	out := make([]verses.Verse, len(vs))
	for i, v := range vs {
		v.AudioURL = v.Audio()
		out[i] = v
	}
	return out
}

// =============================================================================
// Practice (audio comparison proxy)
// =============================================================================

type compareRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	PasukID   int    `json:"pasuk_id" validate:"required,gt=0"`
}

// UploadRecording handles POST /api/v1/practice/recordings (multipart "audio").
func (h *Handlers) UploadRecording(w http.ResponseWriter, r *http.Request) {
	if !h.compareEnabled(w) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	file, header, err := r.FormFile(compare.AudioField)
	if err != nil {
		WriteBadRequest(w, "No audio file provided")
		return
	}
	defer file.Close()

	up, err := h.Compare.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.writeCompareError(w, r, err)
		return
	}
	WriteSuccess(w, up)
}

// CompareRecording handles POST /api/v1/practice/compare
func (h *Handlers) CompareRecording(w http.ResponseWriter, r *http.Request) {
	if !h.compareEnabled(w) {
		return
	}

	req, err := decodeJSON[compareRequest](w, r)
	if err != nil {
		WriteBadRequest(w, bindMessage(err))
		return
	}

	if _, err := h.DB.GetVerse(r.Context(), req.PasukID); err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, fmt.Sprintf("Unknown verse: %d", req.PasukID))
			return
		}
		h.log(r).Error("failed to load verse", slog.Int("pasuk_id", req.PasukID), slog.Any("error", err))
		WriteInternalError(w, "Failed to load verse")
		return
	}

	res, err := h.Compare.Compare(r.Context(), req.SessionID, req.PasukID)
	if err != nil {
		h.writeCompareError(w, r, err)
		return
	}
	WriteSuccess(w, res)
}

// GetResults handles GET /api/v1/practice/results/{session}
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	if !h.compareEnabled(w) {
		return
	}
	session, ok := sessionParam(w, r)
	if !ok {
		return
	}

	res, err := h.Compare.Results(r.Context(), session)
	if err != nil {
		h.writeCompareError(w, r, err)
		return
	}
	WriteSuccess(w, res)
}

// GetPlot handles GET /api/v1/practice/plot/{session}
func (h *Handlers) GetPlot(w http.ResponseWriter, r *http.Request) {
	if !h.compareEnabled(w) {
		return
	}
	session, ok := sessionParam(w, r)
	if !ok {
		return
	}

	m, err := h.Compare.Plot(r.Context(), session)
	if err != nil {
		h.writeCompareError(w, r, err)
		return
	}
	h.writeMedia(w, r, m, "image/png")
}

// GetAudio handles GET /api/v1/practice/audio/{chapter}_{verse}
func (h *Handlers) GetAudio(w http.ResponseWriter, r *http.Request) {
	if !h.compareEnabled(w) {
		return
	}
	chapter, err1 := strconv.Atoi(chi.URLParam(r, "chapter"))
	verse, err2 := strconv.Atoi(chi.URLParam(r, "verse"))
	if err1 != nil || err2 != nil || chapter < 1 || verse < 1 {
		WriteBadRequest(w, "Audio path must be {chapter}_{verse}")
		return
	}

	m, err := h.Compare.Audio(r.Context(), chapter, verse)
	if err != nil {
		h.writeCompareError(w, r, err)
		return
	}
	h.writeMedia(w, r, m, "audio/mpeg")
}

func (h *Handlers) compareEnabled(w http.ResponseWriter) bool {
	if h.Compare == nil {
		WriteError(w, http.StatusServiceUnavailable, "Audio comparison is not configured", "COMPARE_DISABLED")
		return false
	}
	return true
}

func sessionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := chi.URLParam(r, "session")
	if session == "" || len(session) > maxSessionLen {
		WriteBadRequest(w, "Session id is required")
		return "", false
	}
	return session, true
}

func (h *Handlers) writeMedia(w http.ResponseWriter, r *http.Request, m *compare.Media, fallbackType string) {
	defer func() { _ = m.Body.Close() }()

	ct := m.ContentType
	if ct == "" {
		ct = fallbackType
	}
	w.Header().Set("Content-Type", ct)
	if m.Length > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(m.Length, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, m.Body); err != nil {
		h.log(r).Warn("media stream interrupted", slog.Any("error", err))
	}
}

func (h *Handlers) writeCompareError(w http.ResponseWriter, r *http.Request, err error) {
	var se *compare.StatusError
	switch {
	case errors.Is(err, compare.ErrNoAudio):
		WriteBadRequest(w, "No audio file provided")
	case errors.As(err, &se):
		code := "BAD_REQUEST"
		if se.Code == http.StatusNotFound {
			code = "NOT_FOUND"
		}
		WriteError(w, se.Code, se.Message, code)
	default:
		h.log(r).Error("comparison service call failed", slog.Any("error", err))
		WriteBadGateway(w, "Audio comparison service unavailable")
	}
}

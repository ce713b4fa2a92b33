package compare

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL+"/api", time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsScheme(t *testing.T) {
	_, err := NewClient("ftp://example.com", 0, nil)
	assert.Error(t, err)
}

func TestClient_Upload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload-recording", r.URL.Path)

		f, hdr, err := r.FormFile(AudioField)
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "RIFF....WAVE", string(data))
		assert.Equal(t, "take1.wav", hdr.Filename)

		_, _ = w.Write([]byte(`{"success": true, "session_id": "abc-123", "message": "Recording uploaded successfully"}`))
	})

	up, err := c.Upload(context.Background(), "take1.wav", strings.NewReader("RIFF....WAVE"))
	require.NoError(t, err)
	assert.Equal(t, "abc-123", up.SessionID)
}

func TestClient_UploadEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty upload reached the service")
	})

	_, err := c.Upload(context.Background(), "", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestClient_Compare(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/compare-audio", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc-123", body["session_id"])
		assert.EqualValues(t, 7, body["pasuk_id"])

		_, _ = w.Write([]byte(`{
			"session_id": "abc-123",
			"rabbi_text": "וידבר",
			"user_text": "וידבר",
			"phonetic_score": 90,
			"prosody_score": 70,
			"overall_score": 82,
			"plot_available": true
		}`))
	})

	res, err := c.Compare(context.Background(), "abc-123", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, res.PasukID)
	assert.InDelta(t, 82.0, res.OverallScore, 0.001)
	assert.True(t, res.PlotAvailable)
}

func TestClient_CompareFillsOverallScore(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id": "s", "phonetic_score": 80, "prosody_score": 55}`))
	})

	res, err := c.Compare(context.Background(), "s", 1)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, res.OverallScore, 0.001)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
		wantMsg  string
	}{
		{"not found", http.StatusNotFound, `{"error": "User recording not found"}`, 404, "User recording not found"},
		{"bad request", http.StatusBadRequest, `{"error": "Pasuk ID required"}`, 400, "Pasuk ID required"},
		{"no body", http.StatusBadRequest, ``, 400, "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Compare(context.Background(), "s", 1)
			var se *StatusError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.wantCode, se.Code)
			assert.Equal(t, tt.wantMsg, se.Message)
		})
	}
}

func TestClient_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Comparison failed: whisper crashed"}`))
	})

	_, err := c.Compare(context.Background(), "s", 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResult_Weighted(t *testing.T) {
	assert.InDelta(t, 76.67, Result{PhoneticScore: 83.33, ProsodyScore: 66.68}.Weighted(), 0.001)
	assert.Zero(t, Result{}.Weighted())
}

func TestClient_Audio(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.URL.Path != "/api/audio/25_19" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": "Audio file not found"}`))
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ftypM4A"))
	})

	m, err := c.Audio(context.Background(), 25, 19)
	require.NoError(t, err)
	defer m.Body.Close()
	data, err := io.ReadAll(m.Body)
	require.NoError(t, err)
	assert.Equal(t, "ftypM4A", string(data))
	assert.Equal(t, "audio/mpeg", m.ContentType)

	_, err = c.Audio(context.Background(), 1, 1)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "Audio file not found", se.Message)

	_, err = c.Audio(context.Background(), 0, 1)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

func TestClient_PlotAndResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/comparison-plot/abc-123":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG"))
		case "/api/results/abc-123":
			_, _ = w.Write([]byte(`{"session_id": "abc-123", "phonetic_score": 90, "prosody_score": 70, "overall_score": 82, "plot_available": true}`))
		case "/api/comparison-plot/gone":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": "Plot not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	m, err := c.Plot(context.Background(), "abc-123")
	require.NoError(t, err)
	data, _ := io.ReadAll(m.Body)
	_ = m.Body.Close()
	assert.Equal(t, "\x89PNG", string(data))
	assert.Equal(t, "image/png", m.ContentType)

	res, err := c.Results(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.InDelta(t, 82.0, res.OverallScore, 0.001)
	assert.True(t, res.PlotAvailable)

	_, err = c.Plot(context.Background(), "gone")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Plot not found", se.Message)

	_, err = c.Results(context.Background(), "other")
	assert.ErrorIs(t, err, ErrUnavailable)

	for _, bad := range []string{"", "..", "a/b"} {
		_, err = c.Results(context.Background(), bad)
		require.ErrorAs(t, err, &se, "session %q", bad)
		assert.Equal(t, http.StatusBadRequest, se.Code)
	}
}

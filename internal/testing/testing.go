// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/moodsplit/internal/models"
)

// MockTrackSource is a test double for services.TrackSource
type MockTrackSource struct {
	Tracks []models.Track
	Err    error
	Refs   []string
}

func (m *MockTrackSource) PlaylistTracks(ctx context.Context, ref string) ([]models.Track, error) {
	m.Refs = append(m.Refs, ref)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks, nil
}

// Tracks builds n tracks with ids "t0".."t(n-1)" and no audio features.
func Tracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			ID:     models.StringPtr(fmt.Sprintf("t%d", i)),
			Name:   fmt.Sprintf("Song %d", i),
			Artist: fmt.Sprintf("Artist %d", i),
			URL:    fmt.Sprintf("https://open.spotify.com/track/t%d", i),
		}
	}
	return tracks
}

// WithFeatures returns a copy of t with valence and energy set.
func WithFeatures(t models.Track, valence, energy float64) models.Track {
	t.AudioFeatures = &models.AudioFeatures{Valence: valence, Energy: energy}
	return t
}

// RecordingSleeper records requested delays instead of sleeping.
type RecordingSleeper struct {
	mu     sync.Mutex
	Delays []time.Duration
	Err    error
}

func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Delays = append(s.Delays, d)
	return s.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

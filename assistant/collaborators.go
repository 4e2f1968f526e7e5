package assistant

import (
	"context"
	"sync"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/core"
)

// Classifier routes an utterance to an intent.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (core.Classification, error)
}

// Retriever looks up recipes.
type Retriever interface {
	EnsureLoaded(ctx context.Context) error
	Retrieve(ctx context.Context, query string) (core.RecipeMatch, error)
	Random(ctx context.Context) (core.Recipe, error)
	Titles() []string
}

// Generator produces text from prompt parts.
type Generator interface {
	Generate(ctx context.Context, parts ...ai.Part) (string, error)
}

// Forecast is a short-range weather report for one city.
type Forecast struct {
	City     string
	FullText string
}

// WeatherService reports the weather for a canonical city name.
type WeatherService interface {
	Forecast(ctx context.Context, city string) (Forecast, error)
}

// PreferenceStore holds per-user settings.
type PreferenceStore interface {
	// Preferences returns the user's free-form clothing and food
	// preferences, or "" when none are stored.
	Preferences(ctx context.Context, userID string) (string, error)
	// HomeCity returns the user's canonical home city, or "" when unset.
	HomeCity(ctx context.Context, userID string) (string, error)
}

// Location is where a nearby search is centered. Coordinates win over City
// when both are set.
type Location struct {
	Latitude  float64
	Longitude float64
	HasCoords bool
	City      string
}

// Place is one point of interest.
type Place struct {
	Name    string
	Rating  string
	MapsURL string
}

// PlacesService finds points of interest.
type PlacesService interface {
	Nearby(ctx context.Context, near Location) ([]Place, error)
}

// MemoryPreferences is an in-process PreferenceStore.
type MemoryPreferences struct {
	mu    sync.RWMutex
	prefs map[string]string
	homes map[string]string
}

var _ PreferenceStore = (*MemoryPreferences)(nil)

// NewMemoryPreferences creates an empty store.
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{
		prefs: make(map[string]string),
		homes: make(map[string]string),
	}
}

// AddPreference appends a line to the user's preferences.
func (m *MemoryPreferences) AddPreference(userID, pref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur := m.prefs[userID]; cur != "" {
		m.prefs[userID] = cur + "\n" + pref
		return
	}
	m.prefs[userID] = pref
}

// SetHomeCity stores the user's home city.
func (m *MemoryPreferences) SetHomeCity(userID, city string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homes[userID] = city
}

func (m *MemoryPreferences) Preferences(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs[userID], nil
}

func (m *MemoryPreferences) HomeCity(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.homes[userID], nil
}

type unconfiguredWeather struct{}

func (unconfiguredWeather) Forecast(context.Context, string) (Forecast, error) {
	return Forecast{}, ErrNotConfigured
}

type unconfiguredPlaces struct{}

func (unconfiguredPlaces) Nearby(context.Context, Location) ([]Place, error) {
	return nil, ErrNotConfigured
}

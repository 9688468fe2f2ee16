package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scouting/core/catalogue"
	"github.com/scouting/core/query"
	"github.com/scouting/core/store"
)

const testYAML = `
position_codes: [ST, GK]
metrics:
  - id: goals_per90
    name: Goals per 90
    category: shooting
    numerator: goals
    unit: per90
    direction: higher
    per_90: true
    positions: [ST]
    aliases: [goal scoring rate]
presets:
  - id: striker_profile
    name: Striker Profile
    positions: [ST]
    metrics: [goals_per90]
    weights:
      goals_per90: 1.0
`

type staticColumns []string

func (s staticColumns) KnownColumns() []string { return s }

func testCatalogue(t *testing.T) *catalogue.Catalogue {
	t.Helper()
	c, err := catalogue.LoadFromBytes([]byte(testYAML), staticColumns{"goals", "minutes", "matches"})
	if err != nil {
		t.Fatalf("unexpected catalogue error: %v", err)
	}
	return c
}

func testLeagues() []store.League {
	return []store.League{
		{ID: 1, Name: "Premier League"},
		{ID: 2, Name: "La Liga"},
	}
}

// fakePlayerSource is an in-memory store.PlayerSeasonSource backing the
// lenient-fallback's position lookup in tests, without a database.
type fakePlayerSource struct {
	rows map[int64]store.PlayerSeasonRow
}

func (f *fakePlayerSource) FetchPlayerSeason(_ context.Context, playerID int64, _ string) (*store.PlayerSeasonRow, error) {
	row, ok := f.rows[playerID]
	if !ok {
		return nil, errPlayerNotFound
	}
	return &row, nil
}

func (f *fakePlayerSource) FetchCohort(_ context.Context, _ string, _ store.CohortFilters) ([]store.PlayerSeasonRow, error) {
	out := make([]store.PlayerSeasonRow, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

var errPlayerNotFound = fmt.Errorf("player not found")

// fakeLLMServer returns an httptest server that replies with a fixed chat
// completion content string, mimicking an OpenAI-compatible endpoint.
func fakeLLMServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{
			Choices: []struct {
				Message Message `json:"message"`
			}{{Message: Message{Role: "assistant", Content: content}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestParseStrictAcceptsWellFormedResponse(t *testing.T) {
	cat := testCatalogue(t)
	body := `{"kind":"leaderboard","season":"2024-25","metric_id":"goal scoring rate","cohort_filters":{"positions":["ST"],"min_minutes":450},"limit":10}`
	srv := fakeLLMServer(t, body)
	defer srv.Close()

	llm := NewLLMClient(srv.URL, "test-key", "test-model", 0.1, 5*time.Second)
	p := New(cat, llm, testLeagues(), nil)

	q, err := p.Parse(context.Background(), "who are the best strikers by goals per 90")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Kind != query.KindLeaderboard {
		t.Errorf("expected leaderboard kind, got %v", q.Kind)
	}
	if q.MetricID != "goals_per90" {
		t.Errorf("expected alias resolved to canonical id, got %q", q.MetricID)
	}
}

func TestParseStrictRejectsUnknownMetric(t *testing.T) {
	cat := testCatalogue(t)
	body := `{"kind":"leaderboard","season":"2024-25","metric_id":"clutch_factor","limit":10}`
	srv := fakeLLMServer(t, body)
	defer srv.Close()

	llm := NewLLMClient(srv.URL, "test-key", "test-model", 0.1, 5*time.Second)
	p := New(cat, llm, testLeagues(), nil)

	_, err := p.Parse(context.Background(), "give me players with high clutch factor")
	if err == nil {
		t.Fatal("expected ParseError for unknown metric")
	}
}

func TestParseStrictRejectsMalformedJSON(t *testing.T) {
	cat := testCatalogue(t)
	srv := fakeLLMServer(t, "not json at all")
	defer srv.Close()

	llm := NewLLMClient(srv.URL, "test-key", "test-model", 0.1, 5*time.Second)
	p := New(cat, llm, testLeagues(), nil)

	_, err := p.Parse(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected ParseError for malformed JSON")
	}
}

func TestParseLenientFallsBackWithDegradedFlag(t *testing.T) {
	cat := testCatalogue(t)
	body := `{"kind":"leaderboard","season":"2024-25","metric_id":"clutch_factor","limit":10}`
	srv := fakeLLMServer(t, body)
	defer srv.Close()

	llm := NewLLMClient(srv.URL, "test-key", "test-model", 0.1, 5*time.Second)
	p := New(cat, llm, testLeagues(), nil)

	q, degraded, warnings, err := p.ParseLenient(context.Background(), "give me players with high clutch factor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded=true")
	}
	if len(warnings) == 0 || warnings[0] != "unknown term: clutch_factor" {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if q.PresetID == "" {
		t.Error("expected fallback to default to a known preset")
	}
}

func TestParseLenientFallbackUsesReferencePlayerPositionPreset(t *testing.T) {
	cat := testCatalogue(t)
	body := `{"kind":"leaderboard","season":"2024-25","metric_id":"clutch_factor","limit":10}`
	srv := fakeLLMServer(t, body)
	defer srv.Close()

	repo := &fakePlayerSource{rows: map[int64]store.PlayerSeasonRow{
		42: {Player: store.Player{ID: 42, PrimaryPosition: "ST"}},
	}}
	llm := NewLLMClient(srv.URL, "test-key", "test-model", 0.1, 5*time.Second)
	p := New(cat, llm, testLeagues(), repo)

	q, degraded, _, err := p.ParseLenient(context.Background(), "players like player 42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded=true")
	}
	if q.PresetID != "striker_profile" {
		t.Errorf("expected fallback to pick the reference player's position preset, got %q", q.PresetID)
	}
	if q.Reference != 42 {
		t.Errorf("expected reference 42, got %d", q.Reference)
	}
}

func TestParseStrictResolvesLeagueNameToID(t *testing.T) {
	cat := testCatalogue(t)
	body := `{"kind":"leaderboard","season":"2024-25","metric_id":"goals_per90","cohort_filters":{"league":["Premier League"]},"limit":10}`
	srv := fakeLLMServer(t, body)
	defer srv.Close()

	llm := NewLLMClient(srv.URL, "test-key", "test-model", 0.1, 5*time.Second)
	p := New(cat, llm, testLeagues(), nil)

	q, err := p.Parse(context.Background(), "top scorers in the premier league")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.CohortFilters.LeagueIDs) != 1 || q.CohortFilters.LeagueIDs[0] != 1 {
		t.Errorf("expected league name resolved to id 1, got %v", q.CohortFilters.LeagueIDs)
	}
}

func TestParseStrictRejectsUnknownLeague(t *testing.T) {
	cat := testCatalogue(t)
	body := `{"kind":"leaderboard","season":"2024-25","metric_id":"goals_per90","cohort_filters":{"league":["Regional Sunday League"]},"limit":10}`
	srv := fakeLLMServer(t, body)
	defer srv.Close()

	llm := NewLLMClient(srv.URL, "test-key", "test-model", 0.1, 5*time.Second)
	p := New(cat, llm, testLeagues(), nil)

	_, err := p.Parse(context.Background(), "top scorers in some unknown league")
	if err == nil {
		t.Fatal("expected ParseError for unrecognised league name")
	}
}

func TestStripFencesRemovesMarkdown(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	got := stripFences(in)
	if got != `{"a": 1}` {
		t.Errorf("got %q", got)
	}
}

func TestStripFencesPassesThroughPlainJSON(t *testing.T) {
	in := `{"a": 1}`
	if got := stripFences(in); got != in {
		t.Errorf("got %q", got)
	}
}

func TestGuessReferencePlayerExtractsID(t *testing.T) {
	tests := []struct {
		text   string
		wantID int64
		wantOK bool
	}{
		{"show me players like player 42", 42, true},
		{"compare to #7", 7, true},
		{"strikers with high goals", 0, false},
	}
	for _, tt := range tests {
		id, ok := guessReferencePlayer(tt.text)
		if ok != tt.wantOK || id != tt.wantID {
			t.Errorf("guessReferencePlayer(%q) = (%v, %v), want (%v, %v)", tt.text, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestIsSimilarityQueryDetectsKeywords(t *testing.T) {
	if !isSimilarityQuery("find players similar to player 42") {
		t.Error("expected similarity query to be detected")
	}
	if isSimilarityQuery("top scorers this season") {
		t.Error("did not expect similarity query to be detected")
	}
}

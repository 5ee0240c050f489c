package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JakeFAU/wi-election-guide/internal/cache/memory"
	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	t       *testing.T
	tabs    map[string][][]string
	titles  []string
	fail    bool
	csv     string
	csvFail bool
	calls   atomic.Int32
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if r.URL.Path == "/candidates.csv" {
		if f.csvFail {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(f.csv))
		return
	}
	assert.Equal(f.t, "key-123", r.URL.Query().Get("key"))
	if f.fail {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if idx := strings.Index(r.URL.Path, "/values/"); idx >= 0 {
		rng := r.URL.Path[idx+len("/values/"):]
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.tabs[rng]})
		return
	}
	sheets := make([]map[string]any, 0, len(f.titles))
	for _, title := range f.titles {
		sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
}

func newClient(t *testing.T, f *fakeSheets, apiKey string) *Client {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:                  apiKey,
		BaseURL:                 srv.URL,
		CandidatesSpreadsheetID: "cand",
		RacesSpreadsheetID:      "races",
		StoriesSpreadsheetID:    "stories",
		CandidatesCSVURL:        srv.URL + "/candidates.csv",
	}, upstream.New(upstream.Options{Service: "sheets"}), memory.New(32, time.Minute), nil)
}

var assemblyRows = [][]string{
	{"Race ID", "District Number", "Candidate  Name"},
	{"as-1", "1", "Alice"},
	{"as-2", "2"},
	{"as-14", "14", "Bob", "ignored"},
}

func TestRacesNormalizesHeaders(t *testing.T) {
	t.Parallel()

	f := &fakeSheets{tabs: map[string][][]string{"'Assembly'!A:Z": assemblyRows}}
	c := newClient(t, f, "key-123")

	races, err := c.Races(context.Background(), "Assembly")
	require.NoError(t, err)
	require.Len(t, races, 3)
	assert.Equal(t, 0, races[0].ID)
	assert.Equal(t, "Alice", races[0].Get("candidate_name"))
	assert.Equal(t, "", races[1].Get("candidate_name"))
	assert.Len(t, races[2].Fields, 3)

	// "race id" header becomes race_id, so race-id lookups need the hyphenated header.
	assert.Equal(t, "as-1", races[0].Get("race_id"))
}

func TestValuesEscapesSheetTitle(t *testing.T) {
	t.Parallel()

	var escaped atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		escaped.Store(r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(map[string]any{"values": [][]string{{"race-id"}, {"rd-1"}}})
	}))
	t.Cleanup(srv.Close)
	c := New(Config{APIKey: "key-123", BaseURL: srv.URL, RacesSpreadsheetID: "races"},
		upstream.New(upstream.Options{Service: "sheets"}), nil, nil)

	races, err := c.Races(context.Background(), "R&D + Ops")
	require.NoError(t, err)
	require.Len(t, races, 1)
	assert.Equal(t, "/v4/spreadsheets/races/values/'R%26D%20%2B%20Ops'!A%3AZ", escaped.Load())
}

func TestValuesAreCached(t *testing.T) {
	t.Parallel()

	f := &fakeSheets{tabs: map[string][][]string{"'Senate'!A:Z": {{"race-id", "district-number"}, {"se-1", "1"}}}}
	c := newClient(t, f, "key-123")

	for range 3 {
		_, err := c.Races(context.Background(), "Senate")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestRaceLookups(t *testing.T) {
	t.Parallel()

	f := &fakeSheets{tabs: map[string][][]string{
		"'US Congress'!A:Z": {{"race-id", "district-number"}, {"co-3", "3"}, {"co-8", "8"}},
	}}
	c := newClient(t, f, "key-123")
	ctx := context.Background()

	race, err := c.RaceByDistrict(ctx, "8", "US Congress")
	require.NoError(t, err)
	require.NotNil(t, race)
	assert.Equal(t, "co-8", race.RaceID())

	race, err = c.RaceByRaceID(ctx, "co-3", "US Congress")
	require.NoError(t, err)
	require.NotNil(t, race)
	assert.Equal(t, "3", race.DistrictNumber())

	race, err = c.RaceByDistrict(ctx, "99", "US Congress")
	require.NoError(t, err)
	assert.Nil(t, race)
}

func TestRacesPropagateErrors(t *testing.T) {
	t.Parallel()

	c := newClient(t, &fakeSheets{fail: true}, "key-123")
	_, err := c.Races(context.Background(), "Assembly")
	require.Error(t, err)
	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestCandidatesFallBackToCSV(t *testing.T) {
	t.Parallel()

	f := &fakeSheets{fail: true, csv: "Name , Candidate_ID,Party\n Alice , c-1 ,D\nBob,c-2\n"}
	c := newClient(t, f, "key-123")

	candidates, err := c.Candidates(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Alice", candidates[0].Get("name"))
	assert.Equal(t, "c-1", candidates[0].CandidateID())
	assert.Equal(t, "", candidates[1].Get("party"))

	got, err := c.CandidateByCandidateID(context.Background(), "c-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.ID)
}

func TestCandidatesMissingKeyUsesCSV(t *testing.T) {
	t.Parallel()

	f := &fakeSheets{csv: "candidate_id\nc-9\n"}
	c := newClient(t, f, "")

	got, err := c.CandidateByRow(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c-9", got.CandidateID())

	missing, err := c.CandidateByRow(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCandidatesBothSourcesFail(t *testing.T) {
	t.Parallel()

	c := newClient(t, &fakeSheets{fail: true, csvFail: true}, "key-123")
	_, err := c.Candidates(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidates csv")
}

func TestValuesMissingKey(t *testing.T) {
	t.Parallel()

	c := newClient(t, &fakeSheets{}, "")
	_, err := c.Values(context.Background(), "races", "'Assembly'!A:Z")
	require.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestStories(t *testing.T) {
	t.Parallel()

	f := &fakeSheets{tabs: map[string][][]string{
		"'Sheet1'!A:Z": {{"Race_ID", "Headline"}, {"as-1", "A"}, {"go-1", "G"}, {"as-1", "B"}},
	}}
	c := newClient(t, f, "key-123")

	all := c.Stories(context.Background())
	assert.Len(t, all, 3)

	filtered := c.StoriesByRaceID(context.Background(), "as-1")
	require.Len(t, filtered, 2)
	assert.Equal(t, "B", filtered[1].Get("headline"))
}

func TestStoriesErrorIsEmpty(t *testing.T) {
	t.Parallel()

	c := newClient(t, &fakeSheets{fail: true}, "key-123")
	assert.Empty(t, c.Stories(context.Background()))
	assert.Empty(t, c.AvailableSheets(context.Background()))
	assert.Empty(t, c.StatewideRaces(context.Background()))
}

func TestStatewideRaces(t *testing.T) {
	t.Parallel()

	f := &fakeSheets{titles: []string{"Assembly", "Senate", "US Congress", "Governor", "Attorney  General"}}
	c := newClient(t, f, "key-123")

	got := c.StatewideRaces(context.Background())
	assert.Equal(t, []civic.RaceType{
		{Value: "Governor", Label: "Governor", Slug: "governor"},
		{Value: "Attorney  General", Label: "Attorney  General", Slug: "attorney-general"},
	}, got)
}

func TestParseCSV(t *testing.T) {
	t.Parallel()

	records, err := ParseCSV([]byte("A Header,b\n\"x, y\",z\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "x, y", records[0].Get("a_header"))

	empty, err := ParseCSV([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseRowID(t *testing.T) {
	t.Parallel()

	id, err := ParseRowID(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, id)
	_, err = ParseRowID("x")
	require.Error(t, err)
}

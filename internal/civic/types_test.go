package civic

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDistrictType(t *testing.T) {
	t.Parallel()

	dt, err := ParseDistrictType(" Senate ")
	require.NoError(t, err)
	assert.Equal(t, DistrictSenate, dt)
	assert.Equal(t, "Senate", dt.SheetName())
	assert.Equal(t, "US Congress", DistrictCongress.SheetName())

	_, err = ParseDistrictType("county")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDistrictType))
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "candidate_id", NormalizeHeader("Candidate ID"))
	assert.Equal(t, "race-id", NormalizeHeader("Race-ID"))
	assert.Equal(t, "first_name", NormalizeHeader("First \t Name"))
	assert.Equal(t, "attorney-general", Slugify("Attorney  General"))
	assert.Equal(t, "race_id", NormalizeHeader("Race\u00a0ID"))
	assert.Equal(t, "race_id", NormalizeHeader("Race\u2003\ufeffID"))
	assert.Equal(t, "lt.-governor", Slugify("Lt.\u00a0Governor"))
}

func TestRowsToRecords(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"Race ID", "District Number", "Name"},
		{"as-1", "1"},
		{"as-2", "2", "Two", "extra"},
	}
	records := RowsToRecords(rows)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].ID)
	assert.Equal(t, "", records[0].Get("name"))
	assert.Equal(t, "as-1", records[0].Get("race_id"))
	assert.Equal(t, 1, records[1].ID)
	assert.Equal(t, "Two", records[1].Get("name"))
	assert.Len(t, records[1].Fields, 3)

	assert.Empty(t, RowsToRecords(nil))
	assert.Empty(t, RowsToRecords([][]string{{"only", "headers"}}))
}

func TestRecordJSONPrefersIDColumn(t *testing.T) {
	t.Parallel()

	rec := Record{ID: 2, Fields: map[string]string{"id": "cand-7", "name": "Seven"}}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cand-7","name":"Seven"}`, string(data))

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "cand-7", decoded.Get("id"))
}

func TestRecordJSONRoundTrip(t *testing.T) {
	t.Parallel()

	rec := Record{ID: 4, Fields: map[string]string{"race-id": "se-4", "district-number": "4"}}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"race-id":"se-4","district-number":"4"}`, string(data))

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec, decoded)
	assert.Equal(t, "se-4", decoded.RaceID())
	assert.Equal(t, "4", decoded.DistrictNumber())
}

func TestDistrictsJSONUsesNull(t *testing.T) {
	t.Parallel()

	seven := "7"
	var d Districts
	d.Set(DistrictAssembly, &seven)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"assembly":"7","senate":null,"congress":null}`, string(data))
	assert.Equal(t, &seven, d.Get(DistrictAssembly))
	assert.Nil(t, d.Get(DistrictCongress))
}

func TestRaceTypes(t *testing.T) {
	t.Parallel()

	types := RaceTypes()
	require.Len(t, types, 4)
	assert.Equal(t, "Governor", types[3].Value)
	assert.False(t, types[3].HasDistricts)
	assert.True(t, IsDistrictSheet("US Congress"))
	assert.False(t, IsDistrictSheet("Governor"))
}

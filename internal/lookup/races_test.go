package lookup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
	"github.com/JakeFAU/wi-election-guide/internal/lookup"
	"github.com/JakeFAU/wi-election-guide/internal/mapbox"
)

func TestRaceTypes(t *testing.T) {
	t.Parallel()

	svc := newService(fakeFinder{}, newDirectory(), nil)
	assert.Equal(t, civic.RaceTypes(), svc.RaceTypes())
}

func TestDistrictOptions(t *testing.T) {
	t.Parallel()

	svc := newService(fakeFinder{}, newDirectory(), nil)
	options, err := svc.DistrictOptions(context.Background(), civic.SheetAssembly)
	require.NoError(t, err)
	assert.Equal(t, []lookup.DistrictOption{
		{Value: "2", Label: "District 2", RaceID: "as-2"},
		{Value: "14", Label: "District 14", RaceID: "as-14"},
		{Value: "At Large", Label: "District At Large", RaceID: "as-al"},
	}, options)
}

func TestDistrictOptionsSkipsRowsWithoutRaceID(t *testing.T) {
	t.Parallel()

	dir := newDirectory()
	dir.races[civic.SheetAssembly] = []civic.Record{
		race(0, "14", "as-14"),
		race(1, "14", ""),
		race(2, "15", ""),
	}
	svc := newService(fakeFinder{}, dir, nil)

	options, err := svc.DistrictOptions(context.Background(), civic.SheetAssembly)
	require.NoError(t, err)
	assert.Equal(t, []lookup.DistrictOption{{Value: "14", Label: "District 14", RaceID: "as-14"}}, options)

	path, err := svc.ResolveRacePath(context.Background(), civic.SheetAssembly, "14")
	require.NoError(t, err)
	assert.Equal(t, "/testwebsite/assembly/as-14", path)

	_, err = svc.ResolveRacePath(context.Background(), civic.SheetAssembly, "15")
	require.ErrorIs(t, err, lookup.ErrRaceIDNotFound)
}

func TestDistrictOptionsError(t *testing.T) {
	t.Parallel()

	dir := newDirectory()
	dir.failing[civic.SheetSenate] = true
	_, err := newService(fakeFinder{}, dir, nil).DistrictOptions(context.Background(), civic.SheetSenate)
	require.Error(t, err)
}

func TestResolveRacePath(t *testing.T) {
	t.Parallel()

	svc := newService(fakeFinder{}, newDirectory(), nil)
	tests := []struct {
		name     string
		raceType string
		district string
		want     string
		wantErr  error
	}{
		{name: "assembly", raceType: civic.SheetAssembly, district: "14", want: "/testwebsite/assembly/as-14"},
		{name: "congress", raceType: civic.SheetUSCongress, district: "4", want: "/testwebsite/congress/co-4"},
		{name: "governor", raceType: civic.SheetGovernor, want: "/testwebsite/wisconsin-governor/go-1"},
		{name: "empty type", raceType: "", wantErr: lookup.ErrRaceTypeRequired},
		{name: "unknown type", raceType: "Mayor", wantErr: lookup.ErrRaceTypeRequired},
		{name: "missing district", raceType: civic.SheetSenate, wantErr: lookup.ErrDistrictRequired},
		{name: "unknown district", raceType: civic.SheetSenate, district: "33", wantErr: lookup.ErrRaceIDNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := svc.ResolveRacePath(context.Background(), tt.raceType, tt.district)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRacePage(t *testing.T) {
	t.Parallel()

	svc := newService(fakeFinder{}, newDirectory(), nil)

	page, err := svc.RacePage(context.Background(), "senate", "se-5")
	require.NoError(t, err)
	assert.Equal(t, "se-5", page.Race.RaceID())
	require.Len(t, page.Stories, 1)
	require.NotNil(t, page.Map)
	assert.Equal(t, civic.DistrictSenate, page.Map.DistrictType)
	assert.Equal(t, mapbox.DefaultTilesets[civic.DistrictSenate], page.Map.Tileset)
	assert.Equal(t, "5", page.Map.District)

	gov, err := svc.RacePage(context.Background(), lookup.GovernorPath, lookup.GovernorRaceID)
	require.NoError(t, err)
	assert.Nil(t, gov.Map)
	assert.Empty(t, gov.Stories)

	_, err = svc.RacePage(context.Background(), "senate", "se-99")
	require.ErrorIs(t, err, lookup.ErrRaceNotFound)
	_, err = svc.RacePage(context.Background(), "mayor", "x")
	require.ErrorIs(t, err, lookup.ErrUnknownRacePath)
}

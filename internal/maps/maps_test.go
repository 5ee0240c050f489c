package maps

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wi-election-guide/internal/civic"
)

func TestParseDistrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "12", want: 12},
		{in: "  7", want: 7},
		{in: "3rd", want: 3},
		{in: "+4", want: 4},
		{in: "-2", want: -2},
		{in: "08", want: 8},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "+", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDistrict(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDistrict)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverviewMap(t *testing.T) {
	t.Parallel()

	cfg := OverviewMap("wisconsinwatch.6gs2v405", "assembly_layer", 42)
	style, ok := cfg.Style.(*Style)
	require.True(t, ok)
	assert.Equal(t, 8, style.Version)
	assert.Equal(t, Source{Type: "vector", URL: "mapbox://wisconsinwatch.6gs2v405"}, style.Sources[SourceID])
	require.Len(t, style.Layers, 3)
	assert.Equal(t, "districts-fill", style.Layers[0].ID)
	assert.Equal(t, "selected-district", style.Layers[1].ID)
	assert.Equal(t, "districts-outline", style.Layers[2].ID)
	assert.Equal(t, WisconsinBounds, cfg.FitBounds.Bounds)
	assert.Equal(t, 5, cfg.FitBounds.Padding)
	assert.True(t, cfg.PreserveDrawingBuffer)
	assert.False(t, cfg.Interactive)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"filter":["==",["get","FID"],42]`)
	assert.Contains(t, string(data), `"source-layer":"assembly_layer"`)
	assert.Contains(t, string(data), `"center":[-89.6,44.8]`)
}

func TestOverviewMapWithoutSourceLayer(t *testing.T) {
	t.Parallel()

	cfg := OverviewMap("tiles", "", 1)
	style := cfg.Style.(*Style)
	assert.Empty(t, style.Layers)
	data, err := json.Marshal(style)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"layers":[]`)
}

func TestSingleDistrictMap(t *testing.T) {
	t.Parallel()

	cfg := SingleDistrictMap("tiles", "senate_layer", 9, "")
	assert.Equal(t, "mapbox://styles/mapbox/light-v11", cfg.Style)
	require.Len(t, cfg.Layers, 2)
	assert.Equal(t, "district-fill", cfg.Layers[0].ID)
	assert.Equal(t, 0.6, cfg.Layers[0].Paint["fill-opacity"])
	assert.Equal(t, 3, cfg.Layers[1].Paint["line-width"])
	assert.Equal(t, []any{"==", []any{"get", "FID"}, 9}, cfg.Layers[1].Filter)
	assert.Nil(t, cfg.FitBounds)

	custom := SingleDistrictMap("tiles", "", 9, "acme/dark")
	assert.Equal(t, "mapbox://styles/acme/dark", custom.Style)
	assert.Empty(t, custom.Layers)
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	b := NewBuilder(map[civic.DistrictType]string{civic.DistrictSenate: "senate.tiles"}, "acme/light")

	cfg, err := b.Build(civic.DistrictSenate, "14", ModeSingle, "", "layer")
	require.NoError(t, err)
	assert.Equal(t, "mapbox://styles/acme/light", cfg.Style)
	assert.Equal(t, 14, cfg.District)
	assert.Equal(t, "senate.tiles", cfg.Tileset)

	cfg, err = b.Build(civic.DistrictSenate, "14", "", "", "")
	require.NoError(t, err)
	assert.IsType(t, &Style{}, cfg.Style)

	_, err = b.Build(civic.DistrictAssembly, "1", ModeOverview, "", "")
	require.ErrorIs(t, err, civic.ErrInvalidDistrictType)

	_, err = b.Build(civic.DistrictSenate, "x", ModeOverview, "", "")
	require.ErrorIs(t, err, ErrInvalidDistrict)

	_, err = b.Build(civic.DistrictSenate, "1", Mode("globe"), "", "")
	require.ErrorIs(t, err, ErrInvalidMode)
}

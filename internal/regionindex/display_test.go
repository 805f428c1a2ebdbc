package regionindex_test

import (
	"testing"

	"github.com/couchcryptid/svg-world-map/internal/regionindex"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allRegionIDs = []string{"AA", "AA-1", "AA-2", "AA-G", "AA-G1", "AA-G2", "BB", "CC", "CC/0", "DD", "DD-1"}

func displayStates(t *testing.T, ix *regionindex.Index) map[string]regionindex.DisplayState {
	t.Helper()
	out := make(map[string]regionindex.DisplayState, len(allRegionIDs))
	for _, id := range allRegionIDs {
		st, err := ix.Display(id)
		require.NoError(t, err, id)
		out[id] = st
	}
	return out
}

func TestPaint_CountryPropagates(t *testing.T) {
	ix := buildTestIndex(t, testDocument(), regionindex.Handlers{})

	ix.Paint(map[string]string{"AA": "rgb(255,127,127)", "BB": "rgb(1,2,3)", "ZZ": "rgb(0,0,0)"})

	for _, id := range []string{"AA-1", "AA-2", "AA-G", "AA-G1", "AA-G2"} {
		st, err := ix.Display(id)
		require.NoError(t, err)
		assert.Equal(t, "rgb(255,127,127)", st.Fill, id)
		assert.Equal(t, "rgb(255,127,127)", st.Stroke, id)
	}
	bb, err := ix.Display("BB")
	require.NoError(t, err)
	assert.Equal(t, "rgb(1,2,3)", bb.Painted, "single-shape country is painted itself")
	assert.Equal(t, int64(1), ix.Unresolved())
}

func TestPaint_ProvinceOverridesCountry(t *testing.T) {
	ix := buildTestIndex(t, testDocument(), regionindex.Handlers{})

	ix.Paint(map[string]string{"AA-G1": "rgb(9,9,9)", "AA": "rgb(1,1,1)"})

	g1, _ := ix.Display("AA-G1")
	g2, _ := ix.Display("AA-G2")
	assert.Equal(t, "rgb(9,9,9)", g1.Fill)
	assert.Equal(t, "rgb(1,1,1)", g2.Fill)
}

func TestPaint_EmptyAndRepeatedAreIdempotent(t *testing.T) {
	ix := buildTestIndex(t, testDocument(), regionindex.Handlers{})
	before := displayStates(t, ix)

	ix.Paint(map[string]string{})
	ix.Paint(nil)
	if diff := cmp.Diff(before, displayStates(t, ix)); diff != "" {
		t.Fatalf("empty paint changed state (-before +after):\n%s", diff)
	}

	colors := map[string]string{"AA": "rgb(255,200,200)", "CC": "rgb(200,255,200)"}
	ix.Paint(colors)
	once := displayStates(t, ix)
	ix.Paint(colors)
	if diff := cmp.Diff(once, displayStates(t, ix)); diff != "" {
		t.Fatalf("second paint changed state (-once +twice):\n%s", diff)
	}
}

func TestResetAll_ThenPaintMatchesFreshPaint(t *testing.T) {
	day1 := map[string]string{"AA": "rgb(255,127,127)", "BB": "rgb(255,200,160)", "DD-1": "rgb(170,255,170)"}
	day2 := map[string]string{"AA-2": "rgb(255,255,255)", "CC": "rgb(255,130,130)"}

	used := buildTestIndex(t, testDocument(), regionindex.Handlers{})
	used.Paint(day1)
	require.NoError(t, used.Highlight("CC", regionindex.ModeOver))
	require.NoError(t, used.Highlight("CC", regionindex.ModeOut))
	used.ResetAll()
	used.Paint(day2)

	fresh := buildTestIndex(t, testDocument(), regionindex.Handlers{})
	fresh.Paint(day2)

	if diff := cmp.Diff(displayStates(t, fresh), displayStates(t, used)); diff != "" {
		t.Fatalf("reset+paint differs from fresh paint (-fresh +reset):\n%s", diff)
	}
}

func TestHighlight_KeepsPaintAndSelection(t *testing.T) {
	doc := testDocument()
	ix := buildTestIndex(t, doc, regionindex.Handlers{})
	ix.Paint(map[string]string{"AA-1": "rgb(10,10,10)"})

	require.NoError(t, ix.Highlight("AA", regionindex.ModeOver))
	p1, _ := ix.Display("AA-1")
	p2, _ := ix.Display("AA-2")
	assert.Equal(t, "rgb(10,10,10)", p1.Fill, "painted color survives hover")
	assert.Equal(t, "0.5", p1.StrokeWidth)
	assert.Equal(t, "#FFFFFF", p2.Fill)
	assert.Equal(t, "#CCCCCC", doc.find("AAlabel").Attr("fill"))

	require.NoError(t, ix.Select("AA"))
	require.NoError(t, ix.Highlight("AA", regionindex.ModeOut))
	p2, _ = ix.Display("AA-2")
	assert.Equal(t, "#666666", p2.Fill, "hover out does not override the selection")
	assert.True(t, p2.Selected)

	require.NoError(t, ix.Highlight("AA-G2", regionindex.ModeOver))
	g2, _ := ix.Display("AA-G2")
	assert.Equal(t, "#666666", g2.Fill)

	assert.ErrorIs(t, ix.Highlight("nope", regionindex.ModeOver), regionindex.ErrNotFound)
}

func TestSelect_ToggleAndCallbacks(t *testing.T) {
	var clicks []*regionindex.Region
	ix := buildTestIndex(t, testDocument(), regionindex.Handlers{
		OnClick: func(r *regionindex.Region) { clicks = append(clicks, r) },
	})

	require.NoError(t, ix.Select("AA"))
	sel, ok := ix.Selected()
	require.True(t, ok)
	assert.Equal(t, "AA", sel.ID)

	require.NoError(t, ix.Select("BB"))
	aa1, _ := ix.Display("AA-1")
	assert.Equal(t, "#B9B9B9", aa1.Fill, "previous selection restored")
	bb, _ := ix.Display("BB")
	assert.Equal(t, "#666666", bb.Fill)

	require.NoError(t, ix.Select("BB"))
	_, ok = ix.Selected()
	assert.False(t, ok, "selecting the selection clears it")

	require.Len(t, clicks, 3)
	assert.Equal(t, "AA", clicks[0].ID)
	assert.Equal(t, "BB", clicks[1].ID)
	assert.Nil(t, clicks[2])

	ix.Deselect()
	assert.Len(t, clicks, 3, "deselect without selection fires nothing")

	assert.ErrorIs(t, ix.Select("nope"), regionindex.ErrNotFound)
}

func TestSelect_ProvinceThenCountry(t *testing.T) {
	ix := buildTestIndex(t, testDocument(), regionindex.Handlers{})

	require.NoError(t, ix.Select("AA-1"))
	require.NoError(t, ix.Select("AA"))
	aa1, _ := ix.Display("AA-1")
	assert.Equal(t, "#666666", aa1.Fill, "still under the new selection")

	require.NoError(t, ix.Select("AA-2"))
	aa1, _ = ix.Display("AA-1")
	aa2, _ := ix.Display("AA-2")
	assert.Equal(t, "#B9B9B9", aa1.Fill)
	assert.Equal(t, "#666666", aa2.Fill)

	ix.Deselect()
	aa2, _ = ix.Display("AA-2")
	assert.Equal(t, "#B9B9B9", aa2.Fill)
}

func TestHandlePointer(t *testing.T) {
	var over, out []string
	var clicked []*regionindex.Region
	ix := buildTestIndex(t, testDocument(), regionindex.Handlers{
		OnOver:  func(r *regionindex.Region) { over = append(over, r.ID) },
		OnOut:   func(r *regionindex.Region) { out = append(out, r.ID) },
		OnClick: func(r *regionindex.Region) { clicked = append(clicked, r) },
	})

	require.NoError(t, ix.HandlePointer(regionindex.PointerEvent{TargetID: "AA-G1", Mode: regionindex.ModeOver}))
	g1, _ := ix.Display("AA-G1")
	g2, _ := ix.Display("AA-G2")
	assert.Equal(t, "#FFFFFF", g1.Fill)
	assert.Equal(t, "#B9B9B9", g2.Fill, "pointer targets one shape only")

	require.NoError(t, ix.HandlePointer(regionindex.PointerEvent{TargetID: "AA-G1", Mode: regionindex.ModeOut}))
	require.NoError(t, ix.HandlePointer(regionindex.PointerEvent{TargetID: "AA-G1", Mode: regionindex.ModeClick}))
	require.NoError(t, ix.HandlePointer(regionindex.PointerEvent{TargetID: "AA-G1", Mode: regionindex.ModeClick}))

	assert.Equal(t, []string{"AA-G1"}, over)
	assert.Equal(t, []string{"AA-G1"}, out)
	require.Len(t, clicked, 2)
	assert.Equal(t, "AA-G1", clicked[0].ID)
	assert.Nil(t, clicked[1])

	assert.ErrorIs(t, ix.HandlePointer(regionindex.PointerEvent{TargetID: "x", Mode: regionindex.ModeOver}), regionindex.ErrNotFound)
}

func TestHandlers_CanReenterIndex(t *testing.T) {
	var ix *regionindex.Index
	var name string
	ix = buildTestIndex(t, testDocument(), regionindex.Handlers{
		OnClick: func(r *regionindex.Region) {
			if r != nil {
				got, _ := ix.Resolve(r.CountryID)
				name = got.DisplayName
			}
		},
	})

	require.NoError(t, ix.Select("AA-1"))
	assert.Equal(t, "Alphaland", name)
}

func TestDo(t *testing.T) {
	ix := buildTestIndex(t, testDocument(), regionindex.Handlers{})

	var rootID string
	require.NoError(t, ix.Do(func(root regionindex.Node) error {
		rootID = root.ID()
		return nil
	}))
	assert.Equal(t, "map", rootID)
}

func TestParseMode(t *testing.T) {
	m, err := regionindex.ParseMode("over")
	require.NoError(t, err)
	assert.Equal(t, regionindex.ModeOver, m)

	_, err = regionindex.ParseMode("hover")
	assert.Error(t, err)
}

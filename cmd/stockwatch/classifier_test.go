package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySplitsDeniedSections(t *testing.T) {
	snapshot := Snapshot{
		"== EGG STOCK ==",
		"Blue Egg x2",
		"== SEED STOCK ==",
		"Carrot x5",
	}

	part := Classify(snapshot, NewDenySet("== EGG STOCK =="))

	require.Equal(t, Snapshot{"== SEED STOCK ==", "Carrot x5"}, part.Included)
	require.Equal(t, Snapshot{"== EGG STOCK ==", "Blue Egg x2"}, part.Filtered)
}

func TestClassifyDropsItemsBeforeFirstHeader(t *testing.T) {
	part := Classify(Snapshot{"stray x1", "== GEAR STOCK ==", "Trowel x1"}, NewDenySet())

	assert.Equal(t, Snapshot{"== GEAR STOCK ==", "Trowel x1"}, part.Included)
	assert.Empty(t, part.Filtered)
}

func TestClassifyTrimsDecoratedHeaders(t *testing.T) {
	part := Classify(Snapshot{"\n== HONEY STOCK ==", "Honey x1"}, NewDenySet("== HONEY STOCK =="))

	assert.Empty(t, part.Included)
	assert.Equal(t, Snapshot{"== HONEY STOCK ==", "Honey x1"}, part.Filtered)
}

func TestClassifyIsLossless(t *testing.T) {
	snapshot := Snapshot{
		"== SEED STOCK ==", "Carrot x5", "Tomato x3",
		"== EGG STOCK ==", "Blue Egg x2",
		"== GEAR STOCK ==", "Trowel x1",
		"== HONEY STOCK ==",
		"== COSMETIC STOCK ==", "Bench x1",
	}
	deny := NewDenySet("== EGG STOCK ==", "== HONEY STOCK ==")

	part := Classify(snapshot, deny)
	require.Len(t, append(append(Snapshot{}, part.Included...), part.Filtered...), len(snapshot))

	// Walking the source and taking each line from the front of the tier it
	// belongs to must consume both tiers exactly.
	inc, fil := part.Included, part.Filtered
	denied := false
	for _, line := range snapshot {
		if IsHeader(line) {
			denied = deny.Contains(line)
		}
		if denied {
			require.NotEmpty(t, fil)
			require.Equal(t, line, fil[0])
			fil = fil[1:]
		} else {
			require.NotEmpty(t, inc)
			require.Equal(t, line, inc[0])
			inc = inc[1:]
		}
	}
	assert.Empty(t, inc)
	assert.Empty(t, fil)
}

func TestDenySetIsExact(t *testing.T) {
	deny := NewDenySet("== EGG STOCK ==", " ", "")

	assert.True(t, deny.Contains("== EGG STOCK =="))
	assert.False(t, deny.Contains("EGG STOCK"))
	assert.False(t, deny.Contains("== egg stock =="))
	assert.Len(t, deny, 1)
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainDateRoundTrip(t *testing.T) {
	p, err := DomainDate.Parse("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, Point(19723), p)
	assert.Equal(t, "2024-01-01", DomainDate.Format(p))

	before, err := DomainDate.Parse("1969-12-31")
	require.NoError(t, err)
	assert.Equal(t, Point(-1), before)
	assert.Equal(t, "1969-12-31", DomainDate.Format(before))
}

func TestDomainInfinity(t *testing.T) {
	for _, d := range []Domain{DomainInteger, DomainDate, DomainTimestamp} {
		p, err := d.Parse("infinity")
		require.NoError(t, err)
		assert.Equal(t, PosInfinity, p)
		assert.Equal(t, "infinity", d.Format(p))

		p, err = d.Parse("-infinity")
		require.NoError(t, err)
		assert.Equal(t, NegInfinity, p)
	}
}

func TestDomainTimestamp(t *testing.T) {
	p, err := DomainTimestamp.Parse("1970-01-01T00:00:01Z")
	require.NoError(t, err)
	assert.Equal(t, Point(1_000_000), p)
	assert.Equal(t, "1970-01-01T00:00:01Z", DomainTimestamp.Format(p))
}

func TestDomainParseErrors(t *testing.T) {
	_, err := DomainDate.Parse("2024-13-01")
	require.Error(t, err)

	_, err = DomainInteger.Parse("ten")
	require.Error(t, err)

	_, err = Domain("week").Parse("1")
	require.Error(t, err)
}

func TestPrevAndPeriods(t *testing.T) {
	assert.Equal(t, Point(9), Prev(10))
	assert.Equal(t, PosInfinity, Prev(PosInfinity))

	per, err := NewPeriod(1, 3)
	require.NoError(t, err)
	assert.Equal(t, "[1,3)", DomainInteger.FormatPeriod(per))

	_, err = NewPeriod(3, 3)
	require.Error(t, err)
}

func TestEffectOf(t *testing.T) {
	old := Period{From: 10, Until: 20}

	assert.Equal(t, EffectNone, EffectOf(old, Period{From: 10, Until: 20}))
	assert.Equal(t, EffectShrink, EffectOf(old, Period{From: 10, Until: 15}))
	assert.Equal(t, EffectGrow, EffectOf(old, Period{From: 5, Until: 20}))
	assert.Equal(t, EffectMove, EffectOf(old, Period{From: 15, Until: 25}))
}

func TestModeHelpers(t *testing.T) {
	assert.True(t, ModePatchForPortionOf.IsPatch())
	assert.True(t, ModePatchForPortionOf.IsForPortionOf())
	assert.True(t, ModeDeleteForPortionOf.IsLastWriterWins())
	assert.False(t, ModeMergeEntityUpsert.IsLastWriterWins())
	assert.True(t, DeleteMissingTimelineAndEntity.DeletesTimeline())
	assert.True(t, DeleteMissingTimelineAndEntity.DeletesEntities())
	assert.False(t, DeleteMissingTimeline.DeletesEntities())

	cfg := Config{IdentityColumns: []string{"id"}}
	assert.Equal(t, StrategyStableKeyOnly, cfg.EffectiveStrategy())
	cfg.NaturalKeys = [][]string{{"ssn"}}
	assert.Equal(t, StrategyHybrid, cfg.EffectiveStrategy())
	assert.Equal(t, DeleteNone, cfg.EffectiveDeleteMode())
}

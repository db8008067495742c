package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAddMergesOverlappingAndAdjacent(t *testing.T) {
	s := NewSet(Must(10, 20), Must(30, 40), Must(20, 25), Must(50, 60))
	assert.Equal(t, []Interval[int]{Must(10, 25), Must(30, 40), Must(50, 60)}, s.Ranges())

	s.Add(Must(24, 55))
	assert.Equal(t, []Interval[int]{Must(10, 60)}, s.Ranges())
	assert.Equal(t, 1, s.Len())
}

func TestSetAddOutOfOrder(t *testing.T) {
	s := NewSet(Must(50, 60), Must(0, 5), Must(20, 30))
	assert.Equal(t, []Interval[int]{Must(0, 5), Must(20, 30), Must(50, 60)}, s.Ranges())
}

func TestSetCovers(t *testing.T) {
	s := NewSet(Must(10, 20), Must(30, 40))

	assert.True(t, s.Covers(Must(10, 20)))
	assert.True(t, s.Covers(Must(32, 35)))
	assert.False(t, s.Covers(Must(15, 35)))
	assert.False(t, s.Covers(Must(20, 30)))
	assert.False(t, s.Covers(Must(0, 5)))
	assert.False(t, (&Set[int]{}).Covers(Must(0, 1)))
}

func TestCoversWithoutGaps(t *testing.T) {
	target := Must(0, 100)

	assert.True(t, CoversWithoutGaps(target, []Interval[int]{Must(50, 100), Must(0, 50)}))
	assert.True(t, CoversWithoutGaps(target, []Interval[int]{Must(-10, 60), Must(40, 120)}))
	assert.False(t, CoversWithoutGaps(target, []Interval[int]{Must(0, 49), Must(50, 100)}))
	assert.False(t, CoversWithoutGaps(target, nil))
}

func TestGaps(t *testing.T) {
	target := Must(0, 100)
	got := Gaps(target, []Interval[int]{Must(10, 20), Must(15, 30), Must(90, 200)})
	assert.Equal(t, []Interval[int]{Must(0, 10), Must(30, 90)}, got)

	assert.Empty(t, Gaps(target, []Interval[int]{Must(0, 100)}))
	assert.Equal(t, []Interval[int]{target}, Gaps(target, nil))
}

package desire_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/desire"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func singleDesire(id string, satisfaction, importance, decay float64) *desire.Desire {
	return &desire.Desire{
		ID:             id,
		Category:       "test",
		Name:           id,
		Satisfaction:   satisfaction,
		BaseImportance: importance,
		DecayRate:      decay,
		LastSatisfied:  t0,
	}
}

func TestTickDecaysPerMinute(t *testing.T) {
	s := desire.NewStore([]*desire.Desire{
		singleDesire("test.a", 0.9, 0.5, 0.02),
	}, t0)

	s.Tick(t0.Add(30 * time.Minute))

	d, err := s.Get("test.a")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, d.Satisfaction, 1e-9)
	assert.InDelta(t, 0.35, d.Priority(), 1e-9)
}

func TestTickClampsAtZero(t *testing.T) {
	s := desire.NewStore([]*desire.Desire{
		singleDesire("test.a", 0.1, 1.0, 0.05),
	}, t0)

	s.Tick(t0.Add(2 * time.Hour))

	d, err := s.Get("test.a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Satisfaction)
}

func TestTickIdempotentForSameInstant(t *testing.T) {
	s := desire.NewStore([]*desire.Desire{
		singleDesire("test.a", 0.9, 1.0, 0.01),
	}, t0)

	now := t0.Add(10 * time.Minute)
	s.Tick(now)
	first, err := s.Get("test.a")
	require.NoError(t, err)
	level := first.Satisfaction

	s.Tick(now)
	second, err := s.Get("test.a")
	require.NoError(t, err)
	assert.Equal(t, level, second.Satisfaction)
}

func TestSelectActivePicksHighestPriority(t *testing.T) {
	s := desire.NewStore([]*desire.Desire{
		singleDesire("test.low", 0.8, 1.0, 0.01),
		singleDesire("test.high", 0.2, 1.0, 0.01),
	}, t0)

	selected := s.SelectActive()
	require.NotNil(t, selected)
	assert.Equal(t, "test.high", selected.ID)
}

func TestSelectActiveTieBreaksOnDecayRate(t *testing.T) {
	// Equal priority: the faster-decaying desire wins.
	a := singleDesire("test.a", 0.5, 1.0, 0.01)
	b := singleDesire("test.b", 0.5, 1.0, 0.03)
	s := desire.NewStore([]*desire.Desire{a, b}, t0)

	selected := s.SelectActive()
	require.NotNil(t, selected)
	assert.Equal(t, "test.b", selected.ID)
}

func TestSelectActiveTieBreaksOnLastSatisfied(t *testing.T) {
	a := singleDesire("test.a", 0.5, 1.0, 0.02)
	a.LastSatisfied = t0.Add(-time.Hour)
	b := singleDesire("test.b", 0.5, 1.0, 0.02)
	s := desire.NewStore([]*desire.Desire{a, b}, t0)

	selected := s.SelectActive()
	require.NotNil(t, selected)
	assert.Equal(t, "test.a", selected.ID)
}

func TestSelectActiveNilWhenContent(t *testing.T) {
	s := desire.NewStore([]*desire.Desire{
		singleDesire("test.a", 0.95, 1.0, 0.01),
		singleDesire("test.b", 0.92, 1.5, 0.02),
	}, t0)

	assert.Nil(t, s.SelectActive())
}

func TestSelectActiveHonorsContentThreshold(t *testing.T) {
	s := desire.NewStore([]*desire.Desire{
		singleDesire("test.a", 0.85, 1.0, 0.01),
	}, t0, desire.WithContentThreshold(0.8))

	assert.Nil(t, s.SelectActive())
}

func TestSatisfyClampsAndStamps(t *testing.T) {
	s := desire.NewStore([]*desire.Desire{
		singleDesire("test.a", 0.8, 1.0, 0.01),
	}, t0)

	now := t0.Add(time.Minute)
	require.NoError(t, s.Satisfy("test.a", 0.5, now))

	d, err := s.Get("test.a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, d.Satisfaction)
	assert.Equal(t, now, d.LastSatisfied)
}

func TestSatisfyUnknownDesire(t *testing.T) {
	s := desire.NewStore(nil, t0)

	err := s.Satisfy("test.missing", 0.1, t0)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestSnapshotRestore(t *testing.T) {
	s := desire.NewStore([]*desire.Desire{
		singleDesire("test.a", 0.9, 1.0, 0.02),
	}, t0)

	snap := s.Snapshot()
	s.Tick(t0.Add(30 * time.Minute))
	require.NoError(t, s.Satisfy("test.a", 0.1, t0.Add(30*time.Minute)))

	s.Restore(snap)

	d, err := s.Get("test.a")
	require.NoError(t, err)
	assert.Equal(t, 0.9, d.Satisfaction)
	assert.Equal(t, t0, d.LastSatisfied)

	// The decay marker is part of the snapshot: replaying the same tick
	// after a restore decays again from the original marker.
	s.Tick(t0.Add(30 * time.Minute))
	d, err = s.Get("test.a")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, d.Satisfaction, 1e-9)
}

func TestDefaultCatalogLoads(t *testing.T) {
	s := desire.NewStore(nil, t0, desire.WithRandSource(rand.NewSource(1)))

	assert.Equal(t, 12, s.Len())

	d, err := s.Get("sensory.vision")
	require.NoError(t, err)
	assert.Contains(t, d.Capabilities, "capture_image")
	assert.NotEmpty(t, s.Prompt("sensory.vision"))

	conn, err := s.Get("social.connection")
	require.NoError(t, err)
	assert.True(t, conn.Conversational())
}

func TestDocumentRoundTrip(t *testing.T) {
	s := desire.NewStore(nil, t0)
	require.NoError(t, s.Satisfy("sensory.time", 0.2, t0.Add(time.Minute)))

	doc := s.Document(t0.Add(time.Minute))
	catalog, err := desire.FromDocument(doc)
	require.NoError(t, err)

	restored := desire.NewStore(catalog, t0.Add(time.Minute))
	assert.Equal(t, s.Len(), restored.Len())

	orig, err := s.Get("sensory.time")
	require.NoError(t, err)
	got, err := restored.Get("sensory.time")
	require.NoError(t, err)
	assert.Equal(t, orig.Satisfaction, got.Satisfaction)
	assert.Equal(t, "sensory", got.Category)
}

func TestFromDocumentRejectsNewerSchema(t *testing.T) {
	doc := desire.NewStore(nil, t0).Document(t0)
	doc.SchemaVersion = desire.SchemaVersion + 1

	_, err := desire.FromDocument(doc)
	assert.True(t, errors.Is(err, core.ErrConfig))
}

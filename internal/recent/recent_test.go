package recent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingKV struct {
	getErr error
	setErr error
}

func (f failingKV) Get(context.Context, string) (string, error) { return "", f.getErr }
func (f failingKV) Set(context.Context, string, string) error   { return f.setErr }

func TestStore_RecordDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), "", 0)

	_, err := s.Record(ctx, "Paris")
	require.NoError(t, err)
	got, err := s.Record(ctx, "Paris")
	require.NoError(t, err)

	assert.Equal(t, []string{"Paris"}, got)
	assert.Equal(t, []string{"Paris"}, s.Load(ctx))
}

func TestStore_RecordCapsAtFiveMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), DefaultKey, DefaultCapacity)

	for _, city := range []string{"London", "Paris", "Tokyo", "Berlin", "Madrid", "Rome"} {
		_, err := s.Record(ctx, city)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Rome", "Madrid", "Berlin", "Tokyo", "Paris"}, s.Load(ctx))
}

func TestStore_RecordMovesExistingToFront(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), "", 0)

	for _, city := range []string{"London", "Paris", "Tokyo"} {
		_, _ = s.Record(ctx, city)
	}
	got, err := s.Record(ctx, "London")
	require.NoError(t, err)
	assert.Equal(t, []string{"London", "Tokyo", "Paris"}, got)
}

func TestStore_RecordIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), "", 0)

	_, _ = s.Record(ctx, "paris")
	got, _ := s.Record(ctx, "Paris")
	assert.Equal(t, []string{"Paris", "paris"}, got)
}

func TestStore_LoadEmptyWhenMissing(t *testing.T) {
	s := NewStore(NewMemoryKV(), "", 0)
	got := s.Load(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_LoadMalformedDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "not-json"},
		{"object", `{"a":1}`},
		{"mixed types", `["Paris", 3]`},
		{"null", "null"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryKV()
			require.NoError(t, kv.Set(ctx, DefaultKey, tt.value))

			s := NewStore(kv, DefaultKey, DefaultCapacity)
			assert.Equal(t, []string{}, s.Load(ctx))

			got, err := s.Record(ctx, "Oslo")
			require.NoError(t, err)
			assert.Equal(t, []string{"Oslo"}, got)
		})
	}
}

func TestStore_LoadTruncatesOversizedList(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, DefaultKey, `["a","b","c","d","e","f","g"]`))

	s := NewStore(kv, DefaultKey, DefaultCapacity)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, s.Load(ctx))
}

func TestStore_ReadErrorDegradesToEmpty(t *testing.T) {
	s := NewStore(failingKV{getErr: errors.New("connection refused")}, "", 0)
	assert.Empty(t, s.Load(context.Background()))
}

// flakyKV wraps a MemoryKV and fails the next getFailures reads.
type flakyKV struct {
	*MemoryKV
	getFailures int
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, error) {
	if f.getFailures > 0 {
		f.getFailures--
		return "", errors.New("i/o timeout")
	}
	return f.MemoryKV.Get(ctx, key)
}

func TestStore_RecordReadErrorKeepsStoredList(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{MemoryKV: NewMemoryKV()}
	s := NewStore(kv, "", 0)
	for _, city := range []string{"A", "B", "C", "D"} {
		_, err := s.Record(ctx, city)
		require.NoError(t, err)
	}

	kv.getFailures = 1
	got, err := s.Record(ctx, "X")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []string{"D", "C", "B", "A"}, s.Load(ctx))

	_, err = s.Record(ctx, "E")
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "D", "C", "B", "A"}, s.Load(ctx))
}

func TestStore_PersistErrorReturnsList(t *testing.T) {
	setErr := errors.New("read-only")
	s := NewStore(failingKV{getErr: ErrNotFound, setErr: setErr}, "", 0)

	got, err := s.Record(context.Background(), "Lima")
	assert.ErrorIs(t, err, setErr)
	assert.Equal(t, []string{"Lima"}, got)
}

func TestPrepend_DoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b", "c"}
	out := Prepend(in, "b", 5)
	assert.Equal(t, []string{"b", "a", "c"}, out)
	assert.Equal(t, []string{"a", "b", "c"}, in)
}

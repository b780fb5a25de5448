package store

import (
	"testing"
	"time"

	"github.com/manh119/kvengine/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(nil, nil)
}

// run locks the store and dispatches an already-tokenized command,
// sidestepping the whitespace tokenizer so tests can pass an empty-string
// argument (e.g. ZQUERY's name field) that Dispatch's real tokenizer could
// never produce.
func run(t *testing.T, s *Store, tokens ...string) wire.Value {
	t.Helper()
	var buf wire.Buffer
	s.mu.Lock()
	s.dispatchTokens(tokens, &buf)
	s.mu.Unlock()
	v, n, err := wire.Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, buf.Len(), n)
	return v
}

func TestSetGetDelScenario(t *testing.T) {
	s := newTestStore()

	v := run(t, s, "SET", "foo", "bar")
	assert.Equal(t, wire.TagNil, v.Tag)

	v = run(t, s, "GET", "foo")
	require.Equal(t, wire.TagStr, v.Tag)
	assert.Equal(t, "bar", v.Str)

	v = run(t, s, "DEL", "foo")
	require.Equal(t, wire.TagInt, v.Tag)
	assert.EqualValues(t, 1, v.Int)

	v = run(t, s, "GET", "foo")
	assert.Equal(t, wire.TagNil, v.Tag)
}

func TestZAddZQueryScenario(t *testing.T) {
	s := newTestStore()

	v := run(t, s, "ZADD", "s", "1", "a", "2", "b", "2", "c")
	require.Equal(t, wire.TagInt, v.Tag)
	assert.EqualValues(t, 3, v.Int)

	v = run(t, s, "ZQUERY", "s", "2", "", "0", "10")
	require.Equal(t, wire.TagArr, v.Tag)
	require.Len(t, v.Arr, 4)
	assert.Equal(t, "b", v.Arr[0].Str)
	assert.Equal(t, 2.0, v.Arr[1].Dbl)
	assert.Equal(t, "c", v.Arr[2].Str)
	assert.Equal(t, 2.0, v.Arr[3].Dbl)
}

func TestZAddUpdateScoreIsNotANewMember(t *testing.T) {
	s := newTestStore()

	run(t, s, "ZADD", "s", "1", "a")
	v := run(t, s, "ZADD", "s", "5", "a")
	require.Equal(t, wire.TagInt, v.Tag)
	assert.EqualValues(t, 0, v.Int)

	v = run(t, s, "ZQUERY", "s", "0", "", "0", "10")
	require.Equal(t, wire.TagArr, v.Tag)
	require.Len(t, v.Arr, 2)
	assert.Equal(t, "a", v.Arr[0].Str)
	assert.Equal(t, 5.0, v.Arr[1].Dbl)
}

func TestExpirePreservesValueAndTTLSemantics(t *testing.T) {
	s := newTestStore()

	run(t, s, "SET", "k", "v")
	v := run(t, s, "EXPIRE", "k", "10")
	require.Equal(t, wire.TagInt, v.Tag)
	assert.EqualValues(t, 1, v.Int)

	v = run(t, s, "GET", "k")
	require.Equal(t, wire.TagStr, v.Tag)
	assert.Equal(t, "v", v.Str, "EXPIRE must not disturb the stored value")

	v = run(t, s, "TTL", "k")
	require.Equal(t, wire.TagInt, v.Tag)
	assert.EqualValues(t, 10, v.Int)

	v = run(t, s, "PERSIST", "k")
	require.Equal(t, wire.TagInt, v.Tag)
	assert.EqualValues(t, 1, v.Int)

	v = run(t, s, "TTL", "k")
	assert.EqualValues(t, -1, v.Int)
}

func TestTTLOnMissingKeyIsMinusTwo(t *testing.T) {
	s := newTestStore()
	v := run(t, s, "TTL", "nope")
	assert.EqualValues(t, -2, v.Int)
}

func TestExpireTickEvictsDueKeys(t *testing.T) {
	s := newTestStore()
	run(t, s, "SET", "k", "v")

	s.mu.Lock()
	e, _ := s.keys.Lookup("k")
	s.expires.Upsert(e, time.Now().Add(-time.Millisecond)) // already due
	s.mu.Unlock()

	n := s.ExpireTick(2000)
	assert.Equal(t, 1, n)

	v := run(t, s, "GET", "k")
	assert.Equal(t, wire.TagNil, v.Tag)
}

func TestExpireTickRespectsMaxWorks(t *testing.T) {
	s := newTestStore()
	for _, k := range []string{"a", "b", "c"} {
		run(t, s, "SET", k, "v")
		s.mu.Lock()
		e, _ := s.keys.Lookup(k)
		s.expires.Upsert(e, time.Now().Add(-time.Millisecond))
		s.mu.Unlock()
	}

	n := s.ExpireTick(2)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.Len())
}

func TestGetWrongTypeOnZSet(t *testing.T) {
	s := newTestStore()
	run(t, s, "ZADD", "s", "1", "a")
	v := run(t, s, "GET", "s")
	require.Equal(t, wire.TagErr, v.Tag)
	assert.Contains(t, v.Str, "WRONGTYPE")
}

func TestZRemEmptiesSetDeletesKey(t *testing.T) {
	s := newTestStore()
	run(t, s, "ZADD", "s", "1", "a")
	v := run(t, s, "ZREM", "s", "a")
	require.Equal(t, wire.TagInt, v.Tag)
	assert.EqualValues(t, 1, v.Int)

	v = run(t, s, "ZQUERY", "s", "0", "", "0", "10")
	assert.Equal(t, wire.TagNil, v.Tag)
	assert.Equal(t, 0, s.Len())
}

func TestZAddRejectsNaNScore(t *testing.T) {
	s := newTestStore()
	v := run(t, s, "ZADD", "s", "NaN", "a")
	require.Equal(t, wire.TagErr, v.Tag)
	assert.Contains(t, v.Str, "NaN")
	assert.Equal(t, 0, s.Len(), "a rejected ZADD must not create the key")
}

func TestZQueryRejectsNaNScore(t *testing.T) {
	s := newTestStore()
	run(t, s, "ZADD", "s", "1", "a")
	v := run(t, s, "ZQUERY", "s", "NaN", "", "0", "10")
	require.Equal(t, wire.TagErr, v.Tag)
	assert.Contains(t, v.Str, "NaN")
}

func TestZQueryRejectsNegativeLimit(t *testing.T) {
	s := newTestStore()
	run(t, s, "ZADD", "s", "1", "a")
	v := run(t, s, "ZQUERY", "s", "0", "", "0", "-1")
	require.Equal(t, wire.TagErr, v.Tag)
	assert.Contains(t, v.Str, "invalid limit")
}

func TestUnknownCommandIsErr(t *testing.T) {
	s := newTestStore()
	v := run(t, s, "NOPE", "x")
	require.Equal(t, wire.TagErr, v.Tag)
	assert.Equal(t, "Unknown command", v.Str)
}

func TestKeysListsEveryLiveKey(t *testing.T) {
	s := newTestStore()
	run(t, s, "SET", "a", "1")
	run(t, s, "SET", "b", "2")
	run(t, s, "ZADD", "z", "1", "m")

	v := run(t, s, "KEYS")
	require.Equal(t, wire.TagArr, v.Tag)
	names := map[string]bool{}
	for _, item := range v.Arr {
		names[item.Str] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
	assert.True(t, names["z"])
}

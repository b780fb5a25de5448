package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/manh119/kvengine/internal/hashtable"
	"github.com/manh119/kvengine/internal/wire"
	"github.com/manh119/kvengine/internal/zset"
)

const wrongType = "WRONGTYPE Operation against a key holding the wrong kind of value"

// Dispatch tokenizes body on whitespace, runs the named command, and
// writes its reply into out. The caller wraps the call in
// out.ResponseBegin/ResponseEnd; Dispatch itself only ever appends one
// tagged reply value.
//
// Tokenizing on whitespace means a value containing spaces can never
// round-trip through SET/GET — inherited from the source this command
// table was distilled from, not fixed here.
func (s *Store) Dispatch(body []byte, out *wire.Buffer) {
	tokens := strings.Fields(string(body))
	if len(tokens) == 0 {
		wire.WriteErr(out, "empty command")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatchTokens(tokens, out)
}

// dispatchTokens runs an already-tokenized command. Callers must hold mu.
func (s *Store) dispatchTokens(tokens []string, out *wire.Buffer) {
	switch strings.ToUpper(tokens[0]) {
	case "GET":
		s.doGet(tokens, out)
	case "SET":
		s.doSet(tokens, out)
	case "DEL":
		s.doDel(tokens, out)
	case "KEYS":
		s.doKeys(tokens, out)
	case "ZADD":
		s.doZAdd(tokens, out)
	case "ZREM":
		s.doZRem(tokens, out)
	case "ZQUERY":
		s.doZQuery(tokens, out)
	case "EXPIRE":
		s.doExpire(tokens, out)
	case "TTL":
		s.doTTL(tokens, out)
	case "PERSIST":
		s.doPersist(tokens, out)
	default:
		wire.WriteErr(out, "Unknown command")
	}
}

func (s *Store) doGet(tokens []string, out *wire.Buffer) {
	if len(tokens) < 2 {
		wire.WriteErr(out, "GET requires a key")
		return
	}
	e, ok := s.keys.Lookup(tokens[1])
	if !ok {
		wire.WriteNil(out)
		return
	}
	v := e.Value.(*Value)
	switch v.Kind {
	case KindString:
		if len(v.Str) > wire.MaxMsg {
			wire.WriteErr(out, "value too large")
			return
		}
		wire.WriteStr(out, v.Str)
	case KindZSet:
		wire.WriteErr(out, wrongType)
	}
}

// doSet replaces whatever is at key outright: delete any existing entry
// (dropping its TTL along with it) and insert a fresh string entry. Unlike
// EXPIRE or ZADD, which mutate an existing entry in place, SET's whole
// point is to discard what was there before.
func (s *Store) doSet(tokens []string, out *wire.Buffer) {
	if len(tokens) < 3 {
		wire.WriteErr(out, "SET requires key and value")
		return
	}
	key, val := tokens[1], tokens[2]

	if old, ok := s.keys.Delete(key); ok && old.HeapIdx >= 0 {
		s.expires.Delete(old)
	}
	s.keys.Insert(hashtable.NewEntry(key, newStringValue(val)))
	wire.WriteNil(out)
}

func (s *Store) doDel(tokens []string, out *wire.Buffer) {
	if len(tokens) < 2 {
		wire.WriteErr(out, "DEL requires at least one key")
		return
	}
	var count int64
	for _, key := range tokens[1:] {
		if s.deleteLocked(key) {
			count++
		}
	}
	wire.WriteInt(out, count)
}

func (s *Store) doKeys(tokens []string, out *wire.Buffer) {
	m := out.BeginArr()
	var n uint32
	s.keys.ForEach(func(e *hashtable.Entry) {
		wire.WriteStr(out, e.Key)
		n++
	})
	out.EndArr(m, n)
}

func (s *Store) doZAdd(tokens []string, out *wire.Buffer) {
	if len(tokens) < 4 || len(tokens)%2 != 0 {
		wire.WriteErr(out, "ZADD requires: key score member [score member ...]")
		return
	}
	key := tokens[1]

	type pair struct {
		score  float64
		member string
	}
	pairs := make([]pair, 0, (len(tokens)-2)/2)
	for i := 2; i+1 < len(tokens); i += 2 {
		score, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			wire.WriteErr(out, fmt.Sprintf("invalid score: %s", tokens[i]))
			return
		}
		if math.IsNaN(score) {
			wire.WriteErr(out, "score cannot be NaN")
			return
		}
		pairs = append(pairs, pair{score, tokens[i+1]})
	}

	e, ok := s.keys.Lookup(key)
	var v *Value
	if ok {
		v = e.Value.(*Value)
		if v.Kind != KindZSet {
			wire.WriteErr(out, wrongType)
			return
		}
	} else {
		v = newZSetValue(zset.New())
		s.keys.Insert(hashtable.NewEntry(key, v))
	}

	var added int64
	for _, p := range pairs {
		if v.ZSet.Insert(p.score, p.member) {
			added++
		}
	}
	wire.WriteInt(out, added)
}

func (s *Store) doZRem(tokens []string, out *wire.Buffer) {
	if len(tokens) < 3 {
		wire.WriteErr(out, "ZREM requires: key member [member ...]")
		return
	}
	key := tokens[1]
	members := tokens[2:]

	e, ok := s.keys.Lookup(key)
	if !ok {
		wire.WriteInt(out, 0)
		return
	}
	v := e.Value.(*Value)
	if v.Kind != KindZSet {
		wire.WriteErr(out, wrongType)
		return
	}

	var removed int64
	for _, m := range members {
		if n := v.ZSet.Lookup(m); n != nil {
			v.ZSet.Delete(n)
			removed++
		}
	}
	if v.ZSet.Len() == 0 {
		// an emptied set deletes the key outright, carrying its TTL
		// slot (if any) off the heap too
		s.deleteLocked(key)
	}
	wire.WriteInt(out, removed)
}

func (s *Store) doZQuery(tokens []string, out *wire.Buffer) {
	if len(tokens) < 6 {
		wire.WriteErr(out, "ZQUERY requires: key score name offset limit")
		return
	}
	key, name := tokens[1], tokens[3]
	score, err := strconv.ParseFloat(tokens[2], 64)
	if err != nil {
		wire.WriteErr(out, "invalid score")
		return
	}
	if math.IsNaN(score) {
		wire.WriteErr(out, "score cannot be NaN")
		return
	}
	offset, err := strconv.ParseInt(tokens[4], 10, 64)
	if err != nil {
		wire.WriteErr(out, "invalid offset")
		return
	}
	limit, err := strconv.ParseUint(tokens[5], 10, 64)
	if err != nil {
		wire.WriteErr(out, "invalid limit")
		return
	}

	e, ok := s.keys.Lookup(key)
	if !ok {
		wire.WriteNil(out)
		return
	}
	v := e.Value.(*Value)
	if v.Kind != KindZSet {
		wire.WriteErr(out, wrongType)
		return
	}

	node := v.ZSet.SeekGE(score, name)
	if node != nil {
		node = v.ZSet.Offset(node, int(offset))
	}

	m := out.BeginArr()
	var n uint64
	for node != nil && n < limit*2 {
		wire.WriteStr(out, node.Name)
		wire.WriteDbl(out, node.Score)
		n += 2
		node = v.ZSet.Offset(node, 1)
	}
	out.EndArr(m, uint32(n))
}

// doExpire sets or clears a key's TTL by mutating the entry's heap slot in
// place — unlike the source this was distilled from, which replaced the
// stored value with a placeholder string while doing this. EXPIRE only
// ever touches the TTL heap; the value is never disturbed.
func (s *Store) doExpire(tokens []string, out *wire.Buffer) {
	if len(tokens) < 3 {
		wire.WriteErr(out, "EXPIRE requires key and seconds")
		return
	}
	seconds, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		wire.WriteErr(out, "Expected int64")
		return
	}
	key := tokens[1]

	e, ok := s.keys.Lookup(key)
	if !ok {
		wire.WriteInt(out, 0)
		return
	}
	if seconds <= 0 {
		if e.HeapIdx >= 0 {
			s.expires.Delete(e)
		}
	} else {
		s.expires.Upsert(e, now().Add(time.Duration(seconds)*time.Second))
	}
	wire.WriteInt(out, 1)
}

func (s *Store) doTTL(tokens []string, out *wire.Buffer) {
	if len(tokens) < 2 {
		wire.WriteErr(out, "TTL requires a key")
		return
	}
	e, ok := s.keys.Lookup(tokens[1])
	if !ok {
		wire.WriteInt(out, -2)
		return
	}
	if e.HeapIdx < 0 {
		wire.WriteInt(out, -1)
		return
	}
	deadline, _ := s.expires.DeadlineOf(e)
	remaining := time.Until(deadline)
	if remaining <= 0 {
		wire.WriteInt(out, -2)
		return
	}
	wire.WriteInt(out, (remaining.Milliseconds()+999)/1000)
}

func (s *Store) doPersist(tokens []string, out *wire.Buffer) {
	if len(tokens) < 2 {
		wire.WriteErr(out, "PERSIST requires a key")
		return
	}
	e, ok := s.keys.Lookup(tokens[1])
	if !ok {
		wire.WriteInt(out, 0)
		return
	}
	if e.HeapIdx < 0 {
		wire.WriteInt(out, 0)
		return
	}
	s.expires.Delete(e)
	wire.WriteInt(out, 1)
}

package store

import "github.com/manh119/kvengine/internal/zset"

// Kind tags which variant of Value a keyspace entry holds. The teacher's
// original source kept an extra Init variant for a not-yet-written Entry;
// we never construct an entry before it has a real value, so two kinds
// cover everything.
type Kind int

const (
	KindString Kind = iota
	KindZSet
)

// Value is the keyspace payload an Entry's Value field holds. Exactly one
// of Str/ZSet is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Str  string
	ZSet *zset.ZSet
}

func newStringValue(s string) *Value {
	return &Value{Kind: KindString, Str: s}
}

func newZSetValue(z *zset.ZSet) *Value {
	return &Value{Kind: KindZSet, ZSet: z}
}

package main

import (
	"testing"

	"github.com/manh119/kvengine/internal/wire"
	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "(nil)", formatValue(wire.Value{Tag: wire.TagNil}))
	assert.Equal(t, "(error) boom", formatValue(wire.Value{Tag: wire.TagErr, Str: "boom"}))
	assert.Equal(t, "bar", formatValue(wire.Value{Tag: wire.TagStr, Str: "bar"}))
	assert.Equal(t, "(integer) 42", formatValue(wire.Value{Tag: wire.TagInt, Int: 42}))
	assert.Equal(t, "(double) 3.5", formatValue(wire.Value{Tag: wire.TagDbl, Dbl: 3.5}))

	arr := wire.Value{Tag: wire.TagArr, Arr: []wire.Value{
		{Tag: wire.TagStr, Str: "a"},
		{Tag: wire.TagDbl, Dbl: 1},
	}}
	assert.Equal(t, "[a, (double) 1]", formatValue(arr))
}

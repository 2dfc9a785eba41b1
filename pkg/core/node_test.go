package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeKind(t *testing.T) {
	tests := []struct {
		in      string
		want    NodeKind
		wantErr bool
	}{
		{"REAL", KindReal, false},
		{"real", KindReal, false},
		{"", KindReal, false},
		{"TEMPORARY", KindTemporary, false},
		{"temp", KindTemporary, false},
		{"Subquery", KindSubquery, false},
		{"view", "", true},
	}
	for _, tt := range tests {
		got, err := ParseNodeKind(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNodeKeyValidate(t *testing.T) {
	valid := NodeKey{App: "bdp", Database: "dw", Table: "orders", Column: "amount"}
	require.NoError(t, valid.Validate())

	// App is optional
	noApp := NodeKey{Database: "dw", Table: "orders", Column: "amount"}
	require.NoError(t, noApp.Validate())

	for _, k := range []NodeKey{
		{},
		{Database: "dw", Table: "orders"},
		{Database: "dw", Column: "amount"},
		{Table: "orders", Column: "amount"},
	} {
		assert.Error(t, k.Validate(), "key %v", k)
	}
}

func TestNodeKeyString(t *testing.T) {
	k := NodeKey{App: "bdp", Database: "dw", Table: "orders", Column: "amount"}
	assert.Equal(t, "bdp.dw.orders.amount", k.String())

	k.App = ""
	assert.Equal(t, "dw.orders.amount", k.String())
}

func TestNodeKeyEquality(t *testing.T) {
	a := NodeKey{Database: "dw", Table: "t", Column: "c"}
	b := NodeKey{Database: "dw", Table: "t", Column: "c"}
	assert.Equal(t, a, b)

	// Keys are comparable and usable as map keys.
	m := map[NodeKey]int{a: 1}
	m[b]++
	assert.Equal(t, 2, m[a])
}

func TestNewColumnNode(t *testing.T) {
	key := NodeKey{Database: "dw", Table: "orders", Column: "amount"}

	n, err := NewColumnNode(key, "")
	require.NoError(t, err)
	assert.Equal(t, KindReal, n.Kind, "kind defaults to REAL")

	n, err = NewColumnNode(key, KindTemporary)
	require.NoError(t, err)
	assert.Equal(t, KindTemporary, n.Kind)

	_, err = NewColumnNode(NodeKey{}, KindReal)
	assert.Error(t, err)

	_, err = NewColumnNode(key, NodeKind("VIEW"))
	assert.Error(t, err)
}

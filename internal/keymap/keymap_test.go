package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapIdentity(t *testing.T) {
	rule := Rule{Mode: ModeIdentity}

	assert.Equal(t, "dentons_01/a/b.txt", rule.Map("dentons_01/a/b.txt"))
	assert.Equal(t, "", rule.Map(""))

	// The zero value behaves as identity.
	assert.Equal(t, "x/y.pdf", Rule{}.Map("x/y.pdf"))
}

func TestMapPrefixRewrite(t *testing.T) {
	rule := Rule{Mode: ModePrefixRewrite, From: "dentons_01", To: "bl_01"}

	assert.Equal(t, "bl_01/a/b.txt", rule.Map("dentons_01/a/b.txt"))
	assert.Equal(t, "other/x.txt", rule.Map("other/x.txt"))

	// Only the first occurrence is replaced.
	assert.Equal(t, "bl_01/dentons_01/c.txt", rule.Map("dentons_01/dentons_01/c.txt"))
}

func TestMapDeterministic(t *testing.T) {
	rules := []Rule{
		{Mode: ModeIdentity},
		{Mode: ModePrefixRewrite, From: "dentons_01", To: "bl_01"},
		{Mode: ModePrefixRewrite, From: "a", To: "bb"},
	}
	keys := []string{"dentons_01/doc1.pdf", "misc/readme.txt", "a/a/a", ""}

	for _, rule := range rules {
		for _, key := range keys {
			assert.Equal(t, rule.Map(key), rule.Map(key))
		}
	}
}

func TestRemaps(t *testing.T) {
	rule := Rule{Mode: ModePrefixRewrite, From: "dentons_01", To: "bl_01"}

	assert.True(t, rule.Remaps("dentons_01/doc1.pdf"))
	assert.False(t, rule.Remaps("misc/readme.txt"))
	assert.False(t, Rule{Mode: ModeIdentity}.Remaps("dentons_01/doc1.pdf"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Rule{}.Validate())
	require.NoError(t, Rule{Mode: ModeIdentity}.Validate())
	require.NoError(t, Rule{Mode: ModePrefixRewrite, From: "a", To: "b"}.Validate())
	require.NoError(t, Rule{Mode: ModePrefixRewrite, From: "a"}.Validate())

	require.Error(t, Rule{Mode: ModePrefixRewrite}.Validate())
	require.Error(t, Rule{Mode: "rename-all"}.Validate())
}

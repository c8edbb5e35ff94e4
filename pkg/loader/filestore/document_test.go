package filestore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wordstree/pkg/branch"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
	"github.com/matzehuels/wordstree/pkg/tree"
)

func generate(t *testing.T, depth int, name string) *tree.Tree {
	t.Helper()
	tr, err := tree.Generate(branch.NewGenerator(1), depth, name)
	require.NoError(t, err)
	return tr
}

func TestEncodeDecode(t *testing.T) {
	src := generate(t, 6, "oak")
	src.Branches[3].Text = "hello"
	src.FullWidth = 2048

	data, err := Encode(src, "oak", nil)
	require.NoError(t, err)

	doc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, doc.Schema)
	assert.Contains(t, doc.Generator, "wordstree/")
	assert.Equal(t, "oak", doc.Name)
	assert.Equal(t, 2048.0, doc.FullWidth)
	assert.Zero(t, doc.FullHeight)
	assert.False(t, doc.HasPassthrough())

	got, err := doc.Tree()
	require.NoError(t, err)
	assert.Equal(t, src.Branches, got.Branches)
	assert.Equal(t, src.Layers, got.Layers)
}

func TestEncodeOmitsRootParent(t *testing.T) {
	data, err := Encode(generate(t, 2, "oak"), "oak", nil)
	require.NoError(t, err)

	var raw struct {
		Branches []map[string]any `json:"branches"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Branches, 3)
	assert.NotContains(t, raw.Branches[0], "parent")
	assert.Equal(t, 0.0, raw.Branches[1]["parent"])
	assert.NotContains(t, raw.Branches[1], "text")
}

func TestDecodeLegacy(t *testing.T) {
	src := generate(t, 5, "elm")

	// version 0: no schema, no parents
	type legacy struct {
		Index  int        `json:"index"`
		Depth  int        `json:"depth"`
		Length float64    `json:"length"`
		Width  float64    `json:"width"`
		Angle  float64    `json:"angle"`
		Pos    branch.Vec `json:"pos"`
	}
	var branches []legacy
	for _, b := range src.Branches {
		branches = append(branches, legacy{b.Index, b.Depth, b.Length, b.Width, b.Angle, b.Pos})
	}
	data, err := json.Marshal(map[string]any{"name": "elm", "branches": branches})
	require.NoError(t, err)

	doc, err := Decode(data)
	require.NoError(t, err)
	assert.Zero(t, doc.Schema)

	got, err := doc.Tree()
	require.NoError(t, err)
	require.Len(t, got.Branches, len(src.Branches))
	for i := range src.Branches {
		assert.Equal(t, src.Branches[i].Parent, got.Branches[i].Parent, "parent of %d", i)
	}
	assert.NoError(t, tree.CheckLineage(got.Branches))
}

func TestDecodeNewerSchema(t *testing.T) {
	_, err := Decode([]byte(`{"schema": 2, "name": "oak", "branches": []}`))
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeInvalidFormat))
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		code wterrors.Code
	}{
		{"not json", `{`, wterrors.ErrCodeInvalidFormat},
		{"array", `[]`, wterrors.ErrCodeInvalidFormat},
		{"no branches", `{"name": "oak"}`, wterrors.ErrCodeInvalidFormat},
		{"branches not array", `{"branches": {}}`, wterrors.ErrCodeInvalidFormat},
		{"schema string", `{"schema": "1", "branches": []}`, wterrors.ErrCodeInvalidFormat},
		{"bad branch field", `{"branches": [{"index": 0, "depth": "x", "length": 1, "width": 1, "angle": 0, "pos": {"x": 0, "y": 0}}]}`, wterrors.ErrCodeInvalidFormat},
		{"index gap", `{"branches": [{"index": 1, "depth": 0, "length": 1, "width": 1, "angle": 0, "pos": {"x": 0, "y": 0}}]}`, wterrors.ErrCodeCorruptData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.Equal(t, tt.code, wterrors.GetCode(err))
		})
	}
}

func TestDecodeOutOfOrder(t *testing.T) {
	src := generate(t, 3, "oak")
	src.Branches[1].Depth = 5

	data, err := Encode(src, "oak", nil)
	require.NoError(t, err)
	doc, err := Decode(data)
	require.NoError(t, err)

	_, err = doc.Tree()
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeCorruptData))
}

func TestPassthrough(t *testing.T) {
	data := []byte(`{
		"name": "oak",
		"owner": {"id": 7},
		"branches": [
			{"name": "legend", "color": "green"},
			{"index": 0, "depth": 0, "length": 0.4, "width": 0.008, "angle": -1.5, "pos": {"x": 0.5, "y": 0.99}},
			{"note": "partial", "index": 1}
		]
	}`)

	doc, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, doc.HasPassthrough())
	require.Len(t, doc.Branches, 1)
	assert.Equal(t, branch.NoParent, doc.Branches[0].Parent)

	tr, err := doc.Tree()
	require.NoError(t, err)
	out, err := Encode(tr, "oak", doc)
	require.NoError(t, err)

	var raw struct {
		Owner    map[string]any   `json:"owner"`
		Branches []map[string]any `json:"branches"`
	}
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.Equal(t, 7.0, raw.Owner["id"])
	require.Len(t, raw.Branches, 3)
	assert.Equal(t, "legend", raw.Branches[0]["name"])
	assert.Equal(t, 0.0, raw.Branches[1]["index"])
	assert.Equal(t, "partial", raw.Branches[2]["note"])

	again, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, doc.Branches, again.Branches)
}

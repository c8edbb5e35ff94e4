package filestore

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/matzehuels/wordstree/pkg/branch"
	"github.com/matzehuels/wordstree/pkg/buildinfo"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
	"github.com/matzehuels/wordstree/pkg/tree"
)

// SchemaVersion is the document version this package writes. Documents
// without a schema key are version 0 and are still readable.
const SchemaVersion = 1

// Top-level keys owned by the codec. Everything else is passthrough.
const (
	keySchema     = "schema"
	keyGenerator  = "generator"
	keyName       = "name"
	keyFullWidth  = "full_width"
	keyFullHeight = "full_height"
	keyBranches   = "branches"
)

// branchKeys must all be present for an entry of "branches" to be read
// as a branch. An entry with a "name" key is never a branch.
var branchKeys = []string{"index", "depth", "length", "width", "angle", "pos"}

type wireBranch struct {
	Index  int        `json:"index"`
	Depth  int        `json:"depth"`
	Length float64    `json:"length"`
	Width  float64    `json:"width"`
	Angle  float64    `json:"angle"`
	Pos    branch.Vec `json:"pos"`
	Parent *int       `json:"parent,omitempty"`
	Text   string     `json:"text,omitempty"`
}

// passthrough is a "branches" entry that is not a branch. At is the number
// of branches that preceded it.
type passthrough struct {
	At  int
	Raw json.RawMessage
}

// Document is a decoded tree document.
type Document struct {
	Schema     int
	Generator  string
	Name       string
	FullWidth  float64
	FullHeight float64
	Branches   []branch.Branch

	extra   map[string]json.RawMessage
	entries []passthrough
}

// HasPassthrough reports whether the document carried content the codec
// does not interpret.
func (d *Document) HasPassthrough() bool {
	return len(d.extra) > 0 || len(d.entries) > 0
}

// Tree returns the document as a tree with derived layers.
func (d *Document) Tree() (*tree.Tree, error) {
	layers, err := tree.DeriveLayers(d.Branches)
	if err != nil {
		return nil, err
	}
	return &tree.Tree{
		Name:       d.Name,
		Branches:   d.Branches,
		Layers:     layers,
		FullWidth:  d.FullWidth,
		FullHeight: d.FullHeight,
	}, nil
}

// Decode parses a document. Branch order is not checked here; see
// Document.Tree.
func Decode(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, wterrors.Wrap(wterrors.ErrCodeInvalidFormat, err, "document is not a JSON object")
	}

	d := &Document{extra: make(map[string]json.RawMessage)}
	if raw, ok := top[keySchema]; ok {
		if err := json.Unmarshal(raw, &d.Schema); err != nil {
			return nil, wterrors.Wrap(wterrors.ErrCodeInvalidFormat, err, "schema must be an integer")
		}
		if d.Schema > SchemaVersion {
			return nil, wterrors.New(wterrors.ErrCodeInvalidFormat,
				"document schema %d is newer than supported version %d", d.Schema, SchemaVersion)
		}
	}

	fields := []struct {
		key string
		dst any
	}{
		{keyGenerator, &d.Generator},
		{keyName, &d.Name},
		{keyFullWidth, &d.FullWidth},
		{keyFullHeight, &d.FullHeight},
	}
	for _, f := range fields {
		raw, ok := top[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return nil, wterrors.Wrap(wterrors.ErrCodeInvalidFormat, err, "invalid %q", f.key)
		}
	}

	raw, ok := top[keyBranches]
	if !ok {
		return nil, wterrors.New(wterrors.ErrCodeInvalidFormat, "document has no %q", keyBranches)
	}
	if err := d.decodeBranches(raw); err != nil {
		return nil, err
	}

	for k, v := range top {
		switch k {
		case keySchema, keyGenerator, keyName, keyFullWidth, keyFullHeight, keyBranches:
		default:
			d.extra[k] = v
		}
	}
	return d, nil
}

func (d *Document) decodeBranches(raw json.RawMessage) error {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return wterrors.Wrap(wterrors.ErrCodeInvalidFormat, err, "%q must be an array", keyBranches)
	}

	missingParent := false
	for _, e := range entries {
		if !isBranch(e) {
			d.entries = append(d.entries, passthrough{At: len(d.Branches), Raw: e})
			continue
		}
		var w wireBranch
		if err := json.Unmarshal(e, &w); err != nil {
			return wterrors.Wrap(wterrors.ErrCodeInvalidFormat, err, "branch %d", len(d.Branches))
		}
		b := branch.Branch{
			Index:  w.Index,
			Pos:    w.Pos,
			Length: w.Length,
			Width:  w.Width,
			Angle:  w.Angle,
			Depth:  w.Depth,
			Parent: branch.NoParent,
			Text:   w.Text,
		}
		if w.Parent != nil {
			b.Parent = *w.Parent
		} else if w.Depth > 0 {
			missingParent = true
		}
		d.Branches = append(d.Branches, b)
	}

	// parents are indices, so inference needs indices to match positions
	if err := tree.CheckIndices(d.Branches); err != nil {
		return err
	}
	if missingParent && d.Schema == 0 {
		inferParents(d.Branches)
	}
	return nil
}

// isBranch reports whether an entry of "branches" carries every branch key.
func isBranch(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	if _, ok := obj[keyName]; ok {
		return false
	}
	for _, k := range branchKeys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

// tipKey buckets a point so that a child's start matches its parent's tip
// despite rounding.
type tipKey [2]int64

func keyOf(v branch.Vec) tipKey {
	return tipKey{int64(math.Round(v.X * 1e9)), int64(math.Round(v.Y * 1e9))}
}

// inferParents fills in parents for version 0 documents, which did not
// record them: a branch grew from the branch one layer up whose tip is its
// start point. Branches with no such match keep NoParent.
func inferParents(branches []branch.Branch) {
	tips := make(map[tipKey]int)
	depth := -1
	var pending []int
	for i := range branches {
		b := &branches[i]
		if b.Depth != depth {
			// the previous layer becomes the parent layer
			clear(tips)
			for _, j := range pending {
				if branches[j].Depth != b.Depth-1 {
					continue
				}
				k := keyOf(branches[j].Tip())
				if _, dup := tips[k]; !dup {
					tips[k] = j
				}
			}
			pending = pending[:0]
			depth = b.Depth
		}
		pending = append(pending, i)
		if b.Depth == 0 || b.Parent != branch.NoParent {
			continue
		}
		if p, ok := tips[keyOf(b.Pos)]; ok {
			b.Parent = branches[p].Index
		}
	}
}

// Encode renders t as a current-version document. Passthrough content of
// prev, if any, is carried over.
func Encode(t *tree.Tree, name string, prev *Document) ([]byte, error) {
	out := make(map[string]any)
	if prev != nil {
		for k, v := range prev.extra {
			out[k] = v
		}
	}
	out[keySchema] = SchemaVersion
	out[keyGenerator] = buildinfo.Generator()
	out[keyName] = name
	if t.FullWidth != 0 {
		out[keyFullWidth] = t.FullWidth
	}
	if t.FullHeight != 0 {
		out[keyFullHeight] = t.FullHeight
	}

	var entries []passthrough
	if prev != nil {
		entries = prev.entries
	}
	items := make([]any, 0, len(t.Branches)+len(entries))
	next := 0
	for i, b := range t.Branches {
		for next < len(entries) && entries[next].At <= i {
			items = append(items, entries[next].Raw)
			next++
		}
		w := wireBranch{
			Index:  b.Index,
			Depth:  b.Depth,
			Length: b.Length,
			Width:  b.Width,
			Angle:  b.Angle,
			Pos:    b.Pos,
			Text:   b.Text,
		}
		if !b.IsRoot() {
			p := b.Parent
			w.Parent = &p
		}
		items = append(items, w)
	}
	for ; next < len(entries); next++ {
		items = append(items, entries[next].Raw)
	}
	out[keyBranches] = items

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, wterrors.Wrap(wterrors.ErrCodeInternal, err, "encode document %q", name)
	}
	return buf.Bytes(), nil
}

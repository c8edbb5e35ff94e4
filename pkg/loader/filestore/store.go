package filestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wordstree/internal/logging"
	"github.com/matzehuels/wordstree/pkg/branch"
	"github.com/matzehuels/wordstree/pkg/docstore"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
	"github.com/matzehuels/wordstree/pkg/loader"
	"github.com/matzehuels/wordstree/pkg/observability"
	"github.com/matzehuels/wordstree/pkg/tree"
)

// Backend is the name reported to logs and hooks.
const Backend = "file"

// Ext is appended to document names to form store keys.
const Ext = ".json"

// Loader is the document implementation of loader.Loader.
type Loader struct {
	store    docstore.Store
	gen      *branch.Generator
	logger   *log.Logger
	compress bool

	session loader.Session

	// last loaded document, for carrying passthrough content on save
	lastKey string
	lastDoc *Document
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(f *Loader) { f.logger = l }
}

// WithGenerator sets the generator used by Generate selectors.
func WithGenerator(g *branch.Generator) Option {
	return func(f *Loader) { f.gen = g }
}

// WithCompression stores documents zstd-compressed. Uncompressed
// documents already in the store stay readable.
func WithCompression() Option {
	return func(f *Loader) { f.compress = true }
}

// New returns a loader over store. The loader takes ownership of store
// and closes it in Close.
func New(store docstore.Store, opts ...Option) (*Loader, error) {
	f := &Loader{store: store, session: loader.NewSession()}
	for _, opt := range opts {
		opt(f)
	}
	if f.compress {
		cs, err := docstore.Compressed(store)
		if err != nil {
			return nil, err
		}
		f.store = cs
	}
	if f.gen == nil {
		f.gen = branch.NewGenerator(uint64(time.Now().UnixNano()))
	}
	f.logger = logging.OrDefault(f.logger).With("backend", Backend, "session", f.session.ID)
	return f, nil
}

// Close closes the underlying store.
func (f *Loader) Close() error { return f.store.Close() }

// Session returns the loader's bookkeeping.
func (f *Loader) Session() loader.Session { return f.session }

func documentKey(name string) (string, error) {
	key := name + Ext
	if err := docstore.CheckKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Load implements loader.Loader. ByName and ByDocument both read the
// document of that name.
func (f *Loader) Load(ctx context.Context, sel loader.Selector) (*tree.Tree, error) {
	p := logging.NewProgress(f.logger)

	t, ref, err := f.load(ctx, sel)
	n := 0
	if t != nil {
		n = t.Len()
	}
	observability.Loader().OnLoad(ctx, Backend, n, p.Elapsed(), err)
	if err != nil {
		return nil, err
	}

	f.session.Input = ref
	p.Done("loaded tree", "document", ref.Document, "name", t.Name, "branches", t.Len(), "layers", t.Layers)
	return t, nil
}

func (f *Loader) load(ctx context.Context, sel loader.Selector) (*tree.Tree, loader.Ref, error) {
	switch {
	case sel.Generate:
		name := sel.Name
		if name == "" {
			name = loader.DefaultName()
		}
		f.logger.Info("generating tree", "max_depth", sel.Depth(), "name", name)
		t, err := tree.Generate(f.gen, sel.Depth(), name)
		if err != nil {
			return nil, loader.Ref{}, err
		}
		f.lastKey, f.lastDoc = "", nil
		return t, loader.Ref{Name: name}, nil
	case sel.Document != "":
		return f.read(ctx, sel.Document)
	case sel.Name != "":
		return f.read(ctx, sel.Name)
	case sel.ID != 0:
		return nil, loader.Ref{}, wterrors.New(wterrors.ErrCodeInvalidInput, "file store cannot load tree id %d", sel.ID)
	default:
		return nil, loader.Ref{}, wterrors.New(wterrors.ErrCodeInvalidInput, "selector names no tree")
	}
}

func (f *Loader) read(ctx context.Context, document string) (*tree.Tree, loader.Ref, error) {
	key, err := documentKey(document)
	if err != nil {
		return nil, loader.Ref{}, err
	}

	f.logger.Debug("reading document", "key", key)
	data, err := f.store.Get(ctx, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, loader.Ref{}, wterrors.Wrap(wterrors.ErrCodeNotFound, err, "document %q does not exist", document)
	}
	if err != nil {
		return nil, loader.Ref{}, fmt.Errorf("read document %q: %w", document, err)
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, loader.Ref{}, fmt.Errorf("document %q: %w", document, err)
	}
	if doc.Name == "" {
		doc.Name = document
	}
	t, err := doc.Tree()
	if err != nil {
		return nil, loader.Ref{}, fmt.Errorf("document %q: %w", document, err)
	}
	if doc.Schema < SchemaVersion {
		f.logger.Warn("legacy document", "document", document, "schema", doc.Schema)
	}

	f.lastKey, f.lastDoc = key, doc
	return t, loader.Ref{Document: document, Name: doc.Name}, nil
}

// Save implements loader.Loader. The document defaults to the tree name,
// which in turn defaults to loader.DefaultName. An existing document is
// replaced.
func (f *Loader) Save(ctx context.Context, t *tree.Tree, opts loader.SaveOptions) (loader.Ref, error) {
	if t == nil {
		return loader.Ref{}, wterrors.New(wterrors.ErrCodeInvalidInput, "tree is required")
	}
	p := logging.NewProgress(f.logger)

	ref, superseded, err := f.save(ctx, t, opts)
	observability.Loader().OnSave(ctx, Backend, t.Len(), superseded, p.Elapsed(), err)
	if err != nil {
		return loader.Ref{}, err
	}

	f.session.Output = ref
	p.Done("saved tree", "document", ref.Document, "name", ref.Name, "branches", t.Len(), "superseded", superseded)
	return ref, nil
}

func (f *Loader) save(ctx context.Context, t *tree.Tree, opts loader.SaveOptions) (loader.Ref, bool, error) {
	name := opts.Name
	if name == "" {
		name = t.Name
	}
	if name == "" {
		name = loader.DefaultName()
	}
	if err := wterrors.ValidateTreeName(name); err != nil {
		return loader.Ref{}, false, err
	}
	// Decode requires both, so a document failing either could not be
	// loaded back
	if err := tree.CheckIndices(t.Branches); err != nil {
		return loader.Ref{}, false, err
	}
	if _, err := tree.DeriveLayers(t.Branches); err != nil {
		return loader.Ref{}, false, err
	}

	document := opts.Document
	if document == "" {
		document = name
	}
	key, err := documentKey(document)
	if err != nil {
		return loader.Ref{}, false, err
	}

	var prev *Document
	if key == f.lastKey {
		prev = f.lastDoc
	}
	data, err := Encode(t, name, prev)
	if err != nil {
		return loader.Ref{}, false, err
	}

	superseded, err := f.exists(ctx, key)
	if err != nil {
		return loader.Ref{}, false, err
	}
	if err := f.store.Put(ctx, key, data); err != nil {
		return loader.Ref{}, false, fmt.Errorf("write document %q: %w", document, err)
	}
	if superseded {
		f.logger.Info("superseding document", "document", document)
	}
	return loader.Ref{Document: document, Name: name}, superseded, nil
}

func (f *Loader) exists(ctx context.Context, key string) (bool, error) {
	_, err := f.store.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, docstore.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check %q: %w", key, err)
	}
}

// SaveZoomLevel is not supported by the file backend.
func (f *Loader) SaveZoomLevel(ctx context.Context, z loader.ZoomLevel) error {
	err := wterrors.New(wterrors.ErrCodeUnsupported, "file store has no tile index")
	observability.Loader().OnZoomLevelSave(ctx, Backend, z.Level, 0, err)
	return err
}

// SaveTile is not supported by the file backend.
func (f *Loader) SaveTile(ctx context.Context, t loader.Tile) error {
	err := wterrors.New(wterrors.ErrCodeUnsupported, "file store has no tile index")
	observability.Loader().OnTileSave(ctx, Backend, t.ZoomLevel, err)
	return err
}

// Delete removes a document. Deleting a missing document is not an error.
func (f *Loader) Delete(ctx context.Context, document string) error {
	key, err := documentKey(document)
	if err != nil {
		return err
	}
	if err := f.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete document %q: %w", document, err)
	}
	if key == f.lastKey {
		f.lastKey, f.lastDoc = "", nil
	}
	f.logger.Info("deleted document", "document", document)
	return nil
}

// List returns the names of all stored documents, sorted.
func (f *Loader) List(ctx context.Context) ([]string, error) {
	keys, err := f.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var names []string
	for _, k := range keys {
		if strings.HasSuffix(k, Ext) {
			names = append(names, strings.TrimSuffix(k, Ext))
		}
	}
	sort.Strings(names)
	return names, nil
}

var _ loader.Loader = (*Loader)(nil)

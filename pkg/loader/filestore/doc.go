// Package filestore implements loader.Loader over a document store.
//
// Each tree is one JSON document, "<name>.json", under the store's root:
//
//	{"schema": 1, "generator": "wordstree/v1.0.0", "name": "oak",
//	 "branches": [{"index": 0, "depth": 0, "length": 0.4, "width": 0.008,
//	               "angle": -1.5707963267948966, "pos": {"x": 0.5, "y": 0.99}}, ...]}
//
// Documents written before the schema key existed are read as version 0;
// their parents are reconstructed from geometry. Content the codec does
// not recognise is kept and written back when the same document is saved
// again. The file backend has no tile index: SaveZoomLevel and SaveTile
// report UNSUPPORTED.
package filestore

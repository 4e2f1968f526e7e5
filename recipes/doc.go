// Package recipes loads the recipe corpus and retrieves dishes by title.
//
// The corpus is loaded lazily on the first EnsureLoaded: a local JSON cache
// file is tried first, then the remote source. Remote data is normalized to
// Traditional Chinese and written back to the cache file. Recipe titles are
// embedded once per load; queries are matched against them by cosine
// similarity.
//
// The retrieval index is independent of the intent index. Load listeners
// registered with OnLoaded receive the titles after every successful load,
// which is how the intent classifier learns dish names.
package recipes

// Package models defines the data carried through the download pipeline.
//
// Catalog side:
//   - [Track] : immutable track descriptor fetched from the catalog, with optional [Features]
//   - [Target] : a track, album, or playlist reference parsed from a URL or URI
//
// Provider side:
//   - [Candidate] : a raw search hit from the audio provider
//   - [SearchResult] : the query that was issued and the candidate that was chosen, if any
//
// Library side:
//   - [Download] : the deterministic file a track materializes into
//   - [AudioFormat] : output and working container formats, detected by extension
package models

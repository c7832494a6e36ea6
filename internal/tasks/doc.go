// Package tasks turns a catalog target into files in a local library, with real-time progress reporting.
//
// # Stages
//
// [Pipeline.Run] moves every track through the same stages. Each stage runs over the whole batch (bounded by
// [dispatch.Run]) before the next one starts:
//
//  1. Prepare: render the file name and skip tracks whose final file is already ready
//  2. Search: look the track up in the cache, else query the provider and score the candidates
//  3. Download: stream the best candidate into a hidden working file
//  4. Convert: transcode the working file into the output format and remove it
//  5. Tag: write descriptive tags, cover art and the identity/duration markers
//
// A track that fails a stage is dropped from the later ones and reported in [Result.Failed] with the stage and
// error. Tagging never fails a track.
//
// # Progress Reporting
//
// All operations take an optional channel for progress updates. Sends never block: when the channel is full the
// update is dropped. Byte-level download progress is published as [DownloadBytes] updates carrying [ByteProgress].
//
// # Catalog
//
// [Fetch] resolves a [models.Target] into tracks, paging playlists and attaching audio features when available.
// Sync targets are remembered in small JSON metadata files (see [WriteTarget] and [ResolveTarget]).
package tasks

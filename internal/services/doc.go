// Package services implements the remote capabilities the pipeline depends on.
//
// # Catalog
//
// [Catalog] is implemented by [SpotifyService] on top of github.com/zmb3/spotify using the client credentials flow.
// Playlists are read in pages of [PageSize]; audio features are requested in batches of [FeatureBatch].
//
// # Provider
//
// [Provider] is implemented by [YouTubeService]. Searches go to the FastAPI proxy wrapping ytmusicapi
// (GET /api/search?q=...&filter=songs) through [APIService]; downloads resolve an mp4 audio stream with
// github.com/kkdai/youtube.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrMissingCredentials] : client credentials missing or rejected
//   - [shared.ErrAPIRequest] : non-2xx or undecodable response
//   - [shared.ErrServiceUnavailable] : transport failure
//   - [shared.ErrTrackNotFound], [shared.ErrPlaylistNotFound] : catalog lookups that failed
//   - [shared.ErrUnsupportedFormat] : no stream in a working format
package services

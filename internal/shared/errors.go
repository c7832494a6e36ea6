package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrUnsupportedType    = fmt.Errorf("unsupported catalog type")

	// Pipeline errors
	ErrNoCandidate       = fmt.Errorf("no candidate available")
	ErrMissingSource     = fmt.Errorf("no working file to convert")
	ErrShortDownload     = fmt.Errorf("download ended before expected size")
	ErrTranscodeFailed   = fmt.Errorf("transcode failed")
	ErrNotReady          = fmt.Errorf("file does not satisfy readiness criteria")
	ErrUnsupportedFormat = fmt.Errorf("unsupported audio format")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidURL      = fmt.Errorf("invalid catalog URL")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

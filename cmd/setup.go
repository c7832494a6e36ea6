package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/spoti/internal/media"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template (when missing) and the library and cache directories.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", configPath)
	} else if err != nil {
		return fmt.Errorf("failed to check config file: %w", err)
	} else {
		r.writePlain("✓ Using existing %s\n", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}
	r.config = config

	for _, dir := range []string{config.LibraryDir(), config.CacheDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		r.writePlain("✓ Directory %s\n", dir)
	}

	ffmpeg := r.transcoder
	if ffmpeg == nil {
		if f := media.NewFFmpeg(r.logger); f.Available() {
			ffmpeg = f
		}
	}
	if ffmpeg != nil {
		r.writePlain("✓ ffmpeg found\n")
	} else {
		r.logger.Warn("ffmpeg was not found on PATH; downloads cannot be converted")
	}

	creds := config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientID == "your_spotify_client_id" || creds.ClientSecret == "" {
		r.writePlainln("Next steps:")
		r.writePlain("1. Create an app at https://developer.spotify.com/dashboard\n")
		r.writePlain("2. Set credentials.spotify.client_id and client_secret in %s (or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)\n", configPath)
		r.writePlain("3. Run 'spoti download <playlist url>'\n")
	}
	return nil
}

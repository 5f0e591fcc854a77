package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"

	"github.com/Salourh/partfield-deploy/internal/printer"
)

// fetchModel downloads the checkpoint via the primary channel, falling
// back to the direct URL when the primary fails. A truncated artifact
// is never accepted: every failure path removes the partial file.
func (in *Installer) fetchModel(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(in.Env.ModelPath), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	// An undersized checkpoint from an earlier interrupted run is as
	// bad as none at all; remove it before downloading.
	if info, err := os.Stat(in.Env.ModelPath); err == nil && info.Size() < in.Cfg.ModelMinBytes {
		in.Log.Warn("removing undersized checkpoint", "size", info.Size(), "min", in.Cfg.ModelMinBytes)
		if err := os.Remove(in.Env.ModelPath); err != nil {
			return fmt.Errorf("failed to remove undersized checkpoint: %w", err)
		}
	}

	primaryErr := in.downloadChannel(ctx, in.Cfg.ModelURL)
	if primaryErr == nil {
		return nil
	}

	in.Log.Warn("primary model channel failed", "url", in.Cfg.ModelURL, "error", primaryErr)
	if in.Cfg.ModelFallbackURL == "" {
		return primaryErr
	}

	printer.Warning("primary download failed, trying fallback channel\n")
	if fallbackErr := in.downloadChannel(ctx, in.Cfg.ModelFallbackURL); fallbackErr != nil {
		return fmt.Errorf("primary channel: %v; fallback channel: %w", primaryErr, fallbackErr)
	}
	return nil
}

// downloadChannel retries one URL with exponential backoff, verifies
// the byte-size threshold, and renames the completed file into place.
func (in *Installer) downloadChannel(ctx context.Context, url string) error {
	partial := in.Env.ModelPath + ".partial"

	operation := func() error {
		return in.downloadOnce(ctx, url, partial)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = in.Cfg.Download.InitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(in.Cfg.Download.MaxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		os.Remove(partial)
		return err
	}

	if err := os.Rename(partial, in.Env.ModelPath); err != nil {
		os.Remove(partial)
		return fmt.Errorf("failed to finalize checkpoint: %w", err)
	}
	return nil
}

// downloadOnce performs a single attempt. The partial file is removed
// on every error so a retry starts clean.
func (in *Installer) downloadOnce(ctx context.Context, url, partial string) (err error) {
	defer func() {
		if err != nil {
			os.Remove(partial)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := in.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// 4xx will not improve with retries
			return backoff.Permanent(fmt.Errorf("download returned %s", resp.Status))
		}
		return fmt.Errorf("download returned %s", resp.Status)
	}

	out, err := os.Create(partial)
	if err != nil {
		return backoff.Permanent(err)
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		return fmt.Errorf("download interrupted after %d bytes: %w", written, err)
	}
	if closeErr != nil {
		return closeErr
	}

	if written < in.Cfg.ModelMinBytes {
		return fmt.Errorf("downloaded %d bytes, below minimum %d (truncated?)", written, in.Cfg.ModelMinBytes)
	}

	in.Log.Info("checkpoint downloaded", "url", url, "bytes", written)
	return nil
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultAttempts is the number of HTTP attempts per dataset.
const DefaultAttempts = 3

// Fetcher loads dataset text. The zero value is usable.
type Fetcher struct {
	Client   *http.Client
	Attempts int
	Backoff  time.Duration // base delay, doubled per retry
	Logger   *slog.Logger
	DB       *DB // optional; records the outcome of every fetch
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// Fetch loads one dataset and decodes it to UTF-8 text.
// Every failure is returned as an *AcquisitionError.
func (f *Fetcher) Fetch(ctx context.Context, spec Spec) (string, error) {
	start := time.Now()

	var (
		raw    []byte
		status int
		err    error
	)
	if isRemote(spec.Location) {
		raw, status, err = f.download(ctx, spec.Location)
	} else {
		raw, status, err = readLocal(spec.Location)
	}
	if err == nil {
		raw, err = decode(raw, spec.Encoding)
	}

	// A fetch abandoned by the caller says nothing about the source.
	if err == nil || ctx.Err() == nil {
		f.record(spec.Name, status, err)
	}
	if err != nil {
		f.logger().Error("dataset acquisition failed", "dataset", spec.Name, "location", spec.Location, "error", err)
		return "", &AcquisitionError{Name: spec.Name, Location: spec.Location, Err: err}
	}
	f.logger().Debug("dataset acquired", "dataset", spec.Name, "bytes", len(raw), "elapsed", time.Since(start))
	return string(raw), nil
}

// FetchAll loads every spec concurrently and returns texts in spec order.
// The first failure cancels the remaining fetches and is returned alone.
func (f *Fetcher) FetchAll(ctx context.Context, specs ...Spec) ([]string, error) {
	texts := make([]string, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			text, err := f.Fetch(gctx, spec)
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

func (f *Fetcher) record(name string, status int, fetchErr error) {
	if f.DB == nil {
		return
	}
	msg := ""
	if fetchErr != nil {
		msg = fetchErr.Error()
	}
	if err := f.DB.RecordFetch(name, status, msg); err != nil {
		f.logger().Warn("record fetch outcome", "dataset", name, "error", err)
	}
}

// download GETs url with retries and exponential backoff.
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, int, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	attempts := f.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	backoff := f.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			f.logger().Warn("fetch attempt failed", "url", url, "attempt", attempt+1, "error", err)
			continue
		}

		lastStatus = resp.StatusCode
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			f.logger().Warn("fetch attempt failed", "url", url, "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %w", err)
			continue
		}
		return body, resp.StatusCode, nil
	}
	return nil, lastStatus, fmt.Errorf("download %s failed after %d attempts: %w", url, attempts, lastErr)
}

// readLocal reads a file and maps the outcome onto an HTTP-like status so
// local and remote sources share one status column.
func readLocal(location string) ([]byte, int, error) {
	data, err := os.ReadFile(localPath(location))
	switch {
	case err == nil:
		return data, http.StatusOK, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, http.StatusNotFound, err
	case errors.Is(err, os.ErrPermission):
		return nil, http.StatusForbidden, err
	default:
		return nil, 0, err
	}
}

// decode transcodes non-UTF-8 text declared by encoding.
func decode(raw []byte, encoding string) ([]byte, error) {
	if isUTF8(encoding) {
		return raw, nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", encoding, err)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", encoding, err)
	}
	return out, nil
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}

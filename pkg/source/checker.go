package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Reachability is the outcome of checking one dataset location.
type Reachability struct {
	Name     string
	Location string
	Status   int // 0 when no response was obtained
	Err      error
}

// OK reports whether the location answered with a 2xx or 3xx status.
func (r Reachability) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 400
}

// Checker keeps the check columns of the source table current.
type Checker struct {
	db       *DB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

func NewChecker(db *DB, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	// Redirects are reported, not followed.
	noFollow := func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &Checker{
		db:       db,
		logger:   logger,
		interval: interval,
		client:   &http.Client{Timeout: 30 * time.Second, CheckRedirect: noFollow},
	}
}

// Start checks immediately, then every interval, until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		if _, err := c.CheckAll(ctx); err != nil {
			c.logger.Error("source check", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CheckAll checks every stored location in name order and records each
// outcome. It stops early, returning what it has, when ctx is done.
func (c *Checker) CheckAll(ctx context.Context) ([]Reachability, error) {
	records, err := c.db.List()
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	results := make([]Reachability, 0, len(records))
	failed := 0
	for _, r := range records {
		if ctx.Err() != nil {
			break
		}
		res := c.reach(ctx, r.Name, r.Location)
		results = append(results, res)

		msg := ""
		if res.Err != nil {
			msg = res.Err.Error()
		}
		if err := c.db.UpdateCheck(res.Name, res.Status, msg); err != nil {
			c.logger.Error("record check outcome", "dataset", res.Name, "error", err)
		}
		if !res.OK() {
			failed++
			c.logger.Warn("dataset unreachable", "dataset", res.Name, "location", res.Location,
				"status", res.Status, "error", msg)
		}
	}
	if len(results) > 0 {
		c.logger.Info("sources checked", "checked", len(results), "failed", failed)
	}
	return results, nil
}

// reach sends HEAD to remote locations and stats local ones.
func (c *Checker) reach(ctx context.Context, name, location string) Reachability {
	res := Reachability{Name: name, Location: location}
	if !isRemote(location) {
		res.Status, res.Err = statLocal(location)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, location, nil)
	if err != nil {
		res.Err = err
		return res
	}
	resp, err := c.client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	resp.Body.Close()
	res.Status = resp.StatusCode
	return res
}

func statLocal(location string) (int, error) {
	fi, err := os.Stat(localPath(location))
	switch {
	case os.IsNotExist(err):
		return http.StatusNotFound, err
	case err != nil:
		return 0, err
	case fi.IsDir():
		return http.StatusBadRequest, fmt.Errorf("%s is a directory", location)
	}
	return http.StatusOK, nil
}

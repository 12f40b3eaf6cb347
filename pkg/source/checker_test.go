package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/agriquery/internal/testutil"
)

func TestCheckAll_Mixed(t *testing.T) {
	srv200 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv200.Close()

	srv500 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv500.Close()

	srv301 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://example.invalid/moved", http.StatusMovedPermanently)
	}))
	defer srv301.Close()

	dir := t.TempDir()
	local := filepath.Join(dir, "crop.csv")
	os.WriteFile(local, []byte("x"), 0o644)

	sdb := tempDB(t)
	if err := sdb.Seed(
		Spec{Name: "ok", Location: srv200.URL},
		Spec{Name: "error", Location: srv500.URL},
		Spec{Name: "redirect", Location: srv301.URL},
		Spec{Name: "local", Location: local},
		Spec{Name: "missing", Location: filepath.Join(dir, "gone.csv")},
	); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	results, err := NewChecker(sdb, testutil.NewTestLogger(t), time.Hour).CheckAll(context.Background())
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("results = %d, want 5", len(results))
	}
	for _, res := range results {
		if wantOK := res.Name == "ok" || res.Name == "redirect" || res.Name == "local"; res.OK() != wantOK {
			t.Errorf("%s: OK() = %v, want %v", res.Name, res.OK(), wantOK)
		}
	}

	records, err := sdb.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	status := map[string]int{}
	for _, r := range records {
		if r.CheckStatus != nil {
			status[r.Name] = *r.CheckStatus
		}
	}

	want := map[string]int{"ok": 200, "error": 500, "redirect": 301, "local": 200, "missing": 404}
	for name, code := range want {
		if status[name] != code {
			t.Errorf("%s: status = %d, want %d", name, status[name], code)
		}
	}
}

func TestCheckAll_NetworkError(t *testing.T) {
	sdb := tempDB(t)
	sdb.Seed(Spec{Name: "dead", Location: "http://127.0.0.1:1/nope"})

	results, err := NewChecker(sdb, testutil.NewTestLogger(t), time.Hour).CheckAll(context.Background())
	if err != nil || len(results) != 1 || results[0].OK() {
		t.Fatalf("CheckAll = %+v, %v", results, err)
	}

	records, _ := sdb.List()
	if len(records) != 1 {
		t.Fatalf("len = %d", len(records))
	}
	r := records[0]
	if r.CheckStatus == nil || *r.CheckStatus != 0 {
		t.Errorf("status = %v, want 0", r.CheckStatus)
	}
	if r.CheckError == nil {
		t.Error("expected check error to be recorded")
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	sdb := tempDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewChecker(sdb, testutil.NewTestLogger(t), 10*time.Millisecond).Start(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestCheckAll_CancelledStopsEarly(t *testing.T) {
	sdb := tempDB(t)
	sdb.Seed(Spec{Name: "a", Location: "http://127.0.0.1:1/a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := NewChecker(sdb, testutil.NewTestLogger(t), time.Hour).CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want none", results)
	}
	records, _ := sdb.List()
	if records[0].CheckStatus != nil {
		t.Errorf("check recorded after cancel: %d", *records[0].CheckStatus)
	}
}

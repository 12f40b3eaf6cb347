package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/agriquery/internal/testutil"
)

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	return &Fetcher{Backoff: time.Millisecond, Logger: testutil.NewTestLogger(t)}
}

func TestFetch_HTTP(t *testing.T) {
	content := "SUBDIVISION,YEAR,ANNUAL\nKonkan,2020,2500\n"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer ts.Close()

	text, err := testFetcher(t).Fetch(context.Background(), Spec{Name: Rainfall, Location: ts.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if text != content {
		t.Errorf("text = %q, want %q", text, content)
	}
}

func TestFetch_Retry(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	text, err := testFetcher(t).Fetch(context.Background(), Spec{Name: Crops, Location: ts.URL})
	if err != nil {
		t.Fatalf("Fetch with retries: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q", text)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestFetch_AllFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := testFetcher(t).Fetch(context.Background(), Spec{Name: Crops, Location: ts.URL})
	if err == nil {
		t.Fatal("expected error after all retries fail")
	}
	var ae *AcquisitionError
	if !errors.As(err, &ae) {
		t.Fatalf("error %T is not *AcquisitionError", err)
	}
	if ae.Name != Crops || ae.Location != ts.URL {
		t.Errorf("AcquisitionError = %+v", ae)
	}
}

func TestFetch_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crops.csv")
	if err := os.WriteFile(path, []byte("state,year\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := testFetcher(t)
	for _, loc := range []string{path, "file://" + path} {
		text, err := f.Fetch(context.Background(), Spec{Name: Crops, Location: loc})
		if err != nil {
			t.Fatalf("Fetch(%s): %v", loc, err)
		}
		if text != "state,year\n" {
			t.Errorf("Fetch(%s) = %q", loc, text)
		}
	}
}

func TestFetch_MissingFile(t *testing.T) {
	_, err := testFetcher(t).Fetch(context.Background(), Spec{Name: Crops, Location: filepath.Join(t.TempDir(), "nope.csv")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestFetch_DecodesCharset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.csv")
	// "Tamil Nádu" in windows-1252
	if err := os.WriteFile(path, []byte("T\xe1mil N\xe1du"), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := testFetcher(t).Fetch(context.Background(), Spec{Name: Crops, Location: path, Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if text != "Támil Nádu" {
		t.Errorf("text = %q", text)
	}
}

func TestFetch_UnknownCharset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := testFetcher(t).Fetch(context.Background(), Spec{Name: Crops, Location: path, Encoding: "klingon-8"})
	if err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestFetchAll_Order(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	os.WriteFile(a, []byte("A"), 0o644)
	os.WriteFile(b, []byte("B"), 0o644)

	texts, err := testFetcher(t).FetchAll(context.Background(),
		Spec{Name: Crops, Location: a}, Spec{Name: Rainfall, Location: b})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(texts) != 2 || texts[0] != "A" || texts[1] != "B" {
		t.Errorf("texts = %q", texts)
	}
}

func TestFetchAll_OneFails(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	os.WriteFile(a, []byte("A"), 0o644)

	_, err := testFetcher(t).FetchAll(context.Background(),
		Spec{Name: Crops, Location: a}, Spec{Name: Rainfall, Location: filepath.Join(dir, "missing.csv")})
	var ae *AcquisitionError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *AcquisitionError", err)
	}
	if ae.Name != Rainfall {
		t.Errorf("failed dataset = %s, want %s", ae.Name, Rainfall)
	}
}

func TestFetch_RecordsOutcome(t *testing.T) {
	sdb := tempDB(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	os.WriteFile(good, []byte("x"), 0o644)

	if err := sdb.Seed(
		Spec{Name: Crops, Location: good},
		Spec{Name: Rainfall, Location: filepath.Join(dir, "missing.csv")},
	); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	f := testFetcher(t)
	f.DB = sdb
	for _, name := range []string{Crops, Rainfall} {
		spec, err := sdb.Get(name)
		if err != nil {
			t.Fatalf("Get(%s): %v", name, err)
		}
		f.Fetch(context.Background(), spec)
	}

	records, err := sdb.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := map[string]Record{}
	for _, r := range records {
		got[r.Name] = r
	}
	if r := got[Crops]; r.FetchStatus == nil || *r.FetchStatus != 200 || r.FetchError != nil {
		t.Errorf("crops record = %+v", r)
	}
	if r := got[Rainfall]; r.FetchStatus == nil || *r.FetchStatus != 404 || r.FetchError == nil {
		t.Errorf("rainfall record = %+v", r)
	}
}

func TestFetchAll_CancelledSiblingNotRecorded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	sdb := tempDB(t)
	dir := t.TempDir()
	specs := []Spec{
		{Name: Crops, Location: srv.URL},
		{Name: Rainfall, Location: filepath.Join(dir, "missing.csv")},
	}
	if err := sdb.Seed(specs...); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	f := testFetcher(t)
	f.DB = sdb
	_, err := f.FetchAll(context.Background(), specs...)
	var ae *AcquisitionError
	if !errors.As(err, &ae) || ae.Name != Rainfall {
		t.Fatalf("err = %v, want rainfall *AcquisitionError", err)
	}

	records, err := sdb.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := map[string]Record{}
	for _, r := range records {
		got[r.Name] = r
	}
	if r := got[Crops]; r.FetchStatus != nil || r.FetchError != nil {
		t.Errorf("cancelled crops fetch was recorded: status=%v error=%v", r.FetchStatus, r.FetchError)
	}
	if r := got[Rainfall]; r.FetchStatus == nil || *r.FetchStatus != 404 {
		t.Errorf("rainfall record = %+v", r)
	}
}

func TestFetch_CallerCancelNotRecorded(t *testing.T) {
	sdb := tempDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()
	spec := Spec{Name: Crops, Location: srv.URL}
	sdb.Seed(spec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := testFetcher(t)
	f.DB = sdb
	if _, err := f.Fetch(ctx, spec); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	records, _ := sdb.List()
	if records[0].FetchStatus != nil {
		t.Errorf("fetch recorded after cancel: %d", *records[0].FetchStatus)
	}
}

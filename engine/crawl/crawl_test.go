package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastCrawler() *Crawler {
	c := NewCrawler(time.Millisecond)
	c.retry.InitialWait = time.Millisecond
	c.retry.MaxWait = 5 * time.Millisecond
	return c
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "hello world", "hello world"},
		{"tags", "<p>Robotics <b>Lab</b></p>", "Robotics Lab"},
		{"script dropped", "<script>var x = 1;</script>visible", "visible"},
		{"style dropped", "<style>body{color:red}</style>text", "text"},
		{"comment dropped", "<!-- hidden -->shown", "shown"},
		{"entities", "AI &amp; Robotics", "AI & Robotics"},
		{"whitespace", "a\n\n  b\t c", "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flatten(tt.in); got != tt.want {
				t.Fatalf("Flatten(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFetch_SetsUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		w.Write([]byte("<title>Faculty</title><p>ok</p>"))
	}))
	defer srv.Close()

	page, err := fastCrawler().Fetch(context.Background(), srv.URL).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if page.Title != "Faculty" {
		t.Fatalf("title = %q", page.Title)
	}
	if got := ua.Load(); got != defaultUserAgent {
		t.Fatalf("user agent = %v", got)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	page, err := fastCrawler().Fetch(context.Background(), srv.URL).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(page.HTML, "recovered") {
		t.Fatalf("html = %q", page.HTML)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

const directoryHTML = `
<html><body>
<a href="/faculty/smith">Dr. Jane Smith</a>
<a href="/faculty/chen">Dr. Wei Chen</a>
<a href="/about">About the department</a>
<a href="/faculty/smith">Dr. Jane Smith (duplicate)</a>
</body></html>`

func TestDiscoverFaculty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(directoryHTML))
	}))
	defer srv.Close()

	entries, err := fastCrawler().DiscoverFaculty(context.Background(), srv.URL+"/directory").Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Name != "Dr. Jane Smith" || !strings.HasSuffix(entries[0].PageURL, "/faculty/smith") {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Name != "Dr. Wei Chen" {
		t.Fatalf("second entry = %+v", entries[1])
	}
}

func TestCrawl_StreamsPagesAndIsolatesFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/faculty/smith">Dr. Jane Smith</a><a href="/faculty/broken">Dr. Broken Link</a>`))
	})
	mux.HandleFunc("/faculty/smith", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<p>Robotics research, contact jsmith@example.edu</p>`))
	})
	mux.HandleFunc("/faculty/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var pages, failures int
	var email string
	for res := range fastCrawler().Crawl(context.Background(), CrawlOpts{DirectoryURLs: []string{srv.URL + "/directory"}}) {
		fp, err := res.Unwrap()
		if err != nil {
			failures++
			continue
		}
		pages++
		email = fp.Entry.Email
	}
	if pages != 1 || failures != 1 {
		t.Fatalf("pages = %d, failures = %d", pages, failures)
	}
	if email != "jsmith@example.edu" {
		t.Fatalf("email = %q", email)
	}
}

func TestCrawl_BadDirectoryDoesNotStopOthers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dir" {
			w.Write([]byte(`<a href="/faculty/ok">Dr. Good</a>`))
			return
		}
		w.Write([]byte(`<p>lab page</p>`))
	}))
	defer srv.Close()

	// First directory is unreachable, second works.
	opts := CrawlOpts{DirectoryURLs: []string{"http://127.0.0.1:1/dir", srv.URL + "/dir"}}
	var ok int
	for res := range fastCrawler().Crawl(context.Background(), opts) {
		if res.IsOk() {
			ok++
		}
	}
	if ok != 1 {
		t.Fatalf("ok pages = %d, want 1", ok)
	}
}

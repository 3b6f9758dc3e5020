package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	cases := map[string]string{
		"  Korea,   Republic of ": "korea, republic of",
		"CHINA":                   "china",
		"Ｐｅｒｕ":                    "peru",
		"":                        "",
	}
	for in, want := range cases {
		if got := Key(in); got != want {
			t.Errorf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClient_Lookup(t *testing.T) {
	var gotUA, gotFormat, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotFormat = r.URL.Query().Get("format")
		gotQuery = r.URL.Query().Get("q")
		switch gotQuery {
		case "Australia":
			_, _ = w.Write([]byte(`[{"lat":"-24.77","lon":"134.75","display_name":"Australia"}]`))
		case "Busy":
			http.Error(w, "slow down", http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL + "/", UserAgent: "minedash-test"})
	p, err := c.Lookup(context.Background(), "Australia")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.Lat != -24.77 || p.Lon != 134.75 || p.Entity != "Australia" {
		t.Errorf("point: %+v", p)
	}
	if gotUA != "minedash-test" || gotFormat != "jsonv2" || gotQuery != "Australia" {
		t.Errorf("request: ua=%q format=%q q=%q", gotUA, gotFormat, gotQuery)
	}

	if _, err := c.Lookup(context.Background(), "Atlantis"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("empty result: got %v, want ErrNoMatch", err)
	}
	var se *StatusError
	if _, err := c.Lookup(context.Background(), "Busy"); !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Errorf("status error: got %v", err)
	}
}

// countingLookuper counts calls per name and fails for names in fail.
type countingLookuper struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	total atomic.Int32
}

func (c *countingLookuper) Lookup(_ context.Context, name string) (Point, error) {
	c.total.Add(1)
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[Key(name)]++
	c.mu.Unlock()
	if err, ok := c.fail[Key(name)]; ok {
		return Point{}, err
	}
	return Point{Entity: name, Lat: 1, Lon: 2}, nil
}

func TestResolver_DedupesAndMemoises(t *testing.T) {
	src := &countingLookuper{fail: map[string]error{"atlantis": ErrNoMatch}}
	r := NewResolver(src, WithWorkers(2))

	got := r.ResolveAll(context.Background(), []string{"China", "china ", "Peru", "Atlantis", "", "CHINA"})
	if len(got) != 4 {
		t.Fatalf("resolved %d names: %v", len(got), got)
	}
	if _, ok := got["Atlantis"]; ok {
		t.Error("no-match must be absent from the result")
	}
	if got["china "].Entity != "china " {
		t.Errorf("entity should echo the given spelling: %+v", got["china "])
	}
	if src.calls["china"] != 1 {
		t.Errorf("china looked up %d times", src.calls["china"])
	}

	before := src.total.Load()
	r.ResolveAll(context.Background(), []string{"China", "Atlantis", "Peru"})
	if _, ok := r.Resolve(context.Background(), "atlantis"); ok {
		t.Error("atlantis should stay unresolved")
	}
	if src.total.Load() != before {
		t.Errorf("cached names were looked up again")
	}
	if r.Len() != 3 {
		t.Errorf("cache size %d", r.Len())
	}
}

func TestResolver_ErrorTTL(t *testing.T) {
	src := &countingLookuper{fail: map[string]error{"peru": errors.New("connection reset")}}
	r := NewResolver(src, WithErrorTTL(time.Minute))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if _, ok := r.Resolve(context.Background(), "Peru"); ok {
		t.Fatal("failing lookup resolved")
	}
	r.Resolve(context.Background(), "Peru")
	if src.calls["peru"] != 1 {
		t.Fatalf("transient failure retried before ttl: %d calls", src.calls["peru"])
	}
	now = now.Add(2 * time.Minute)
	r.Resolve(context.Background(), "Peru")
	if src.calls["peru"] != 2 {
		t.Errorf("transient failure not retried after ttl: %d calls", src.calls["peru"])
	}
}

func TestResolver_CancelledNotCached(t *testing.T) {
	src := &countingLookuper{}
	r := NewResolver(src)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src.fail = map[string]error{"chile": context.Canceled}
	r.Resolve(ctx, "Chile")
	if r.Len() != 0 {
		t.Errorf("cancelled lookup was cached")
	}
}

func TestStaticAndChain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coords.yaml")
	body := "Australia: {lat: -25.3, lon: 133.8}\n\"Korea, Republic of\": {lat: 36.5, lon: 127.9}\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := LoadStatic(path)
	if err != nil {
		t.Fatalf("LoadStatic: %v", err)
	}
	p, err := st.Lookup(context.Background(), "korea,  republic of")
	if err != nil || p.Lat != 36.5 || p.Entity != "korea,  republic of" {
		t.Errorf("static lookup: %+v %v", p, err)
	}

	remote := &countingLookuper{fail: map[string]error{"atlantis": ErrNoMatch}}
	chain := Chain{st, nil, remote}
	if _, err := chain.Lookup(context.Background(), "Australia"); err != nil || remote.total.Load() != 0 {
		t.Errorf("static hit should short-circuit: err=%v calls=%d", err, remote.total.Load())
	}
	if _, err := chain.Lookup(context.Background(), "Atlantis"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("chain miss: %v", err)
	}
	if _, err := LoadStatic(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MINEDASH_DEFAULT_TOP_N", "7")
	t.Setenv("MINEDASH_CORS_ORIGINS", "http://a.test, http://b.test")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DefaultTopN != 7 {
		t.Errorf("default_top_n from env: got %d", c.DefaultTopN)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "http://b.test" {
		t.Errorf("cors_origins: %v", c.CORSOrigins)
	}
	if c.ListenAddr != ":8080" || c.GeocodeWorkers != 4 {
		t.Errorf("defaults not applied: %+v", c)
	}
	if want := filepath.Join(home, DirName, "workspace"); c.WorkspaceDir != want {
		t.Errorf("workspace_dir: got %s want %s", c.WorkspaceDir, want)
	}
}

func TestLoad_DotEnvFromParentDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	sub := filepath.Join(root, "reports", "2024")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("MINEDASH_LISTEN_ADDR=:7070\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MINEDASH_LISTEN_ADDR", "")
	_ = os.Unsetenv("MINEDASH_LISTEN_ADDR")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(sub); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != ":7070" {
		t.Errorf("listen_addr from parent .env: got %q", c.ListenAddr)
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := &Global{DataDir: "/srv/data", DefaultTopN: 3, ListenAddr: ":9000"}
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DataDir != "/srv/data" || got.DefaultTopN != 3 || got.ListenAddr != ":9000" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSet(t *testing.T) {
	c := &Global{}
	if err := Set(c, "geocode_rps", "0.5"); err != nil || c.GeocodeRPS != 0.5 {
		t.Fatalf("geocode_rps: %v %v", err, c.GeocodeRPS)
	}
	if err := Set(c, "cors_origins", "http://x.test,,http://y.test"); err != nil || len(c.CORSOrigins) != 2 {
		t.Fatalf("cors_origins: %v %v", err, c.CORSOrigins)
	}
	if err := Set(c, "default_top_n", "0"); err == nil {
		t.Fatal("expected error for zero top n")
	}
	if err := Set(c, "nope", "x"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

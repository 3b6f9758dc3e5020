package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/minedash/internal/store"
	"github.com/KaramelBytes/minedash/internal/table"
)

const sample = "Country,2012,2013\nAustralia,100,200\nChina,50,\nKenya,5,5\n"

func TestUploadRequiresCapability(t *testing.T) {
	dir := t.TempDir()
	reg, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Upload(false, "ti", "", strings.NewReader(sample)); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "datasets", "ti.csv")); !os.IsNotExist(err) {
		t.Fatalf("forbidden upload must not write a file: %v", err)
	}
	if err := reg.Remove(false, "ti"); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on remove, got %v", err)
	}
}

func TestUploadPersistsAndPreviews(t *testing.T) {
	dir := t.TempDir()
	reg, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	e, err := reg.Upload(true, "titanium_2024", "new figures", strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if e.ID == "" || e.Rows != 3 || strings.Join(e.Columns, ",") != "Country,2012,2013" {
		t.Fatalf("entry: %+v", e)
	}
	if e.Path != filepath.Join(dir, "datasets", "titanium_2024.csv") {
		t.Errorf("path: %s", e.Path)
	}

	// reopen from disk
	again, err := store.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := again.Get("titanium_2024")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.ID != e.ID || got.Description != "new figures" {
		t.Errorf("reloaded entry: %+v", got)
	}
	pv, err := again.Preview(got, 2)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(pv.Rows) != 2 || pv.Rows[0][0] != "Australia" {
		t.Errorf("preview rows: %v", pv.Rows)
	}

	if err := again.Remove(true, "titanium_2024"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(again.List()) != 0 {
		t.Error("list should be empty after remove")
	}
	if _, err := os.Stat(e.Path); !os.IsNotExist(err) {
		t.Errorf("file should be deleted: %v", err)
	}
	if err := again.Remove(true, "titanium_2024"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second remove: %v", err)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	reg, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "Upper", "-lead", "a b", "../x"} {
		if _, err := reg.Upload(true, name, "", strings.NewReader(sample)); !errors.Is(err, store.ErrInvalidName) {
			t.Errorf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
	var le *table.LoadError
	if _, err := reg.Upload(true, "empty", "", strings.NewReader("")); !errors.As(err, &le) {
		t.Errorf("empty upload: expected LoadError, got %v", err)
	}
	if len(reg.List()) != 0 {
		t.Error("failed uploads must not be registered")
	}
}

func TestUploadReplacesExisting(t *testing.T) {
	reg, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Upload(true, "ti", "v1", strings.NewReader(sample)); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Upload(true, "ti", "v2", strings.NewReader("Country,2012\nPeru,1\n")); err != nil {
		t.Fatal(err)
	}
	list := reg.List()
	if len(list) != 1 || list[0].Description != "v2" || list[0].Rows != 1 {
		t.Fatalf("list: %+v", list[0])
	}
}

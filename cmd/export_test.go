package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/KaramelBytes/minedash/internal/sink"
	"github.com/KaramelBytes/minedash/internal/tidy"
)

type countingWriter struct {
	closes   int
	closeErr error
}

func (w *countingWriter) Write(context.Context, string, []tidy.Record) error { return nil }

func (w *countingWriter) Close() error {
	w.closes++
	return w.closeErr
}

func TestCloseWriters_ClosesEachOnceAndJoinsErrors(t *testing.T) {
	errDB := errors.New("db close failed")
	errCSV := errors.New("csv flush failed")
	a := &countingWriter{closeErr: errDB}
	b := &countingWriter{}
	c := &countingWriter{closeErr: errCSV}

	err := closeWriters([]sink.RecordWriter{a, b, c})
	if !errors.Is(err, errDB) || !errors.Is(err, errCSV) {
		t.Fatalf("expected both close errors, got %v", err)
	}
	for i, w := range []*countingWriter{a, b, c} {
		if w.closes != 1 {
			t.Errorf("writer %d closed %d times", i, w.closes)
		}
	}
	if err := closeWriters(nil); err != nil {
		t.Errorf("no writers: %v", err)
	}
}

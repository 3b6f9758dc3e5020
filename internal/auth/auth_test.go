package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestGate(t *testing.T) {
	hash, err := HashToken("s3cret")
	if err != nil {
		t.Fatalf("HashToken: %v", err)
	}
	g := NewGate(hash)
	if !g.Allow("s3cret") {
		t.Error("correct token rejected")
	}
	if g.Allow("wrong") || g.Allow("") {
		t.Error("wrong or empty token accepted")
	}

	req := httptest.NewRequest("POST", "/admin/datasets", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	if !g.AllowRequest(req) {
		t.Error("bearer header rejected")
	}
	req.Header.Set("Authorization", "Basic s3cret")
	if g.AllowRequest(req) {
		t.Error("non-bearer scheme accepted")
	}
}

func TestGate_NoHashDeniesAll(t *testing.T) {
	g := NewGate("")
	if g.Enabled() || g.Allow("anything") {
		t.Error("gate without hash must deny")
	}
	var nilGate *Gate
	if nilGate.Allow("x") {
		t.Error("nil gate must deny")
	}
	if _, err := HashToken("  "); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("blank token: %v", err)
	}
}

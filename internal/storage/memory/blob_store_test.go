package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("%PDF-1.3")
	uri, err := store.PutObject(context.Background(), "reports/a1.pdf", "application/pdf", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://reports/a1.pdf" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'X'
	stored, ok := store.Object("reports/a1.pdf")
	if !ok || string(stored) != "%PDF-1.3" {
		t.Fatalf("expected stored copy to be immutable, got %q", stored)
	}
	if _, ok := store.Object("missing"); ok {
		t.Fatal("expected missing object")
	}
}

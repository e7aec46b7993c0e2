package gcp

import (
	"context"
	"testing"
)

func TestNewFirestoreClient_RequiresProject(t *testing.T) {
	if _, err := NewFirestoreClient(context.Background(), "", "exports-db"); err == nil {
		t.Fatal("expected an error without a project ID")
	}
}

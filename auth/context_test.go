package auth

import (
	"context"
	"testing"
)

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if PrincipalFromContext(ctx) != nil {
		t.Error("PrincipalFromContext(empty) != nil")
	}
	if SubjectFromContext(ctx) != "" {
		t.Error("SubjectFromContext(empty) != \"\"")
	}

	p := &Principal{Subject: "user-123"}
	ctx = WithPrincipal(ctx, p)
	if got := PrincipalFromContext(ctx); got != p {
		t.Errorf("PrincipalFromContext() = %v, want %v", got, p)
	}
	if got := SubjectFromContext(ctx); got != "user-123" {
		t.Errorf("SubjectFromContext() = %q, want user-123", got)
	}
}

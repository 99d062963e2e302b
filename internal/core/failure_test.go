package core

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestIOFailureEmbedsCause(t *testing.T) {
	f := IOFailure("Failed to write file", os.ErrPermission)
	if !strings.Contains(f.Error(), os.ErrPermission.Error()) {
		t.Fatalf("message must embed cause: %q", f.Error())
	}
	if !errors.Is(f, os.ErrPermission) {
		t.Fatalf("failure must unwrap to cause")
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", ParseFailure("Erreur JSON", errors.New("bad")))
	kind, ok := KindOf(err)
	if !ok || kind != KindParse {
		t.Fatalf("kind = %q ok=%v", kind, ok)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatalf("plain error has no kind")
	}
}

package rpcerr

import (
	"errors"
	"testing"
)

func TestIsFatalClassifiesFatalKinds(t *testing.T) {
	fatal := []Kind{KindSnodeMigrated, KindInsufficientProofOfWork, KindTokenExpired}
	for _, k := range fatal {
		if !IsFatal(New(k, "")) {
			t.Errorf("expected %s to be fatal", k)
		}
	}
}

func TestIsFatalNonFatalKinds(t *testing.T) {
	nonFatal := []Kind{KindHTTPRequestFailed, KindParsingFailed, KindGeneric}
	for _, k := range nonFatal {
		if IsFatal(New(k, "")) {
			t.Errorf("expected %s to not be fatal", k)
		}
	}
}

func TestIsFatalIgnoresOtherErrorTypes(t *testing.T) {
	if IsFatal(errors.New("plain error")) {
		t.Fatal("expected plain errors to never be fatal")
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := New(KindTokenExpired, "expired for server X")
	b := New(KindTokenExpired, "expired for server Y")
	if !errors.Is(a, b) {
		t.Fatal("expected errors with the same kind to match via errors.Is")
	}
	c := New(KindGeneric, "")
	if errors.Is(a, c) {
		t.Fatal("expected errors with different kinds not to match")
	}
}

func TestHTTPRequestFailedCarriesStatus(t *testing.T) {
	err := HTTPRequestFailed(421, `{"reason":"migrated"}`)
	if err.Status != 421 {
		t.Fatalf("status = %d, want 421", err.Status)
	}
	if err.Kind != KindHTTPRequestFailed {
		t.Fatalf("kind = %s, want %s", err.Kind, KindHTTPRequestFailed)
	}
}

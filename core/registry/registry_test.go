package registry

import (
	"context"
	"testing"
)

func TestRegistry_LockUnlock(t *testing.T) {
	r := New()
	r.SetGlobal("k", 1)
	if r.IsLocked("k") {
		t.Fatal("fresh key reported locked")
	}
	r.Lock("k")
	if !r.IsLocked("k") {
		t.Fatal("Lock did not lock")
	}
	r.UnlockForTesting("k")
	if r.IsLocked("k") {
		t.Error("UnlockForTesting did not unlock")
	}
	v, ok := r.GetGlobal("k")
	if !ok || v.(int) != 1 {
		t.Errorf("GetGlobal = %v, %v, want 1, true", v, ok)
	}
}

func TestRequestRegistry_FromContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("bare context should not carry a request registry")
	}
	ctx := WithRequest(context.Background())
	rr, ok := FromContext(ctx)
	if !ok {
		t.Fatal("FromContext after WithRequest = false")
	}
	rr.Set(KeyRequestID, "abc")
	got, _ := rr.Get(KeyRequestID)
	if got != "abc" {
		t.Errorf("Get = %v, want abc", got)
	}
}

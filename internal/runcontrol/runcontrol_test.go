package runcontrol

import (
	"context"
	"testing"
)

func TestLocalSignal_CancelIsIdempotentAndObservable(t *testing.T) {
	s := NewLocalSignal()
	if s.Cancelled(context.Background()) {
		t.Fatal("want not cancelled before Cancel()")
	}
	s.Cancel()
	s.Cancel()
	if !s.Cancelled(context.Background()) {
		t.Fatal("want cancelled after Cancel()")
	}
}

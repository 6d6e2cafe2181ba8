package reporter

import (
	"context"
	"testing"

	"github.com/TechniCodeCamp2025/fleet-api/internal/rundriver"
)

func TestChannelReporter_DropsOldestWhenFull(t *testing.T) {
	r := NewChannelReporter(2)
	r.Report(context.Background(), rundriver.ProgressEvent{RoutesProcessed: 1})
	r.Report(context.Background(), rundriver.ProgressEvent{RoutesProcessed: 2})
	r.Report(context.Background(), rundriver.ProgressEvent{RoutesProcessed: 3})

	first := <-r.Events()
	second := <-r.Events()
	if first.RoutesProcessed != 2 || second.RoutesProcessed != 3 {
		t.Fatalf("got %d, %d; want 2, 3 (oldest dropped)", first.RoutesProcessed, second.RoutesProcessed)
	}
}

func TestChannelReporter_NeverBlocks(t *testing.T) {
	r := NewChannelReporter(1)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			r.Report(context.Background(), rundriver.ProgressEvent{RoutesProcessed: i})
		}
		close(done)
	}()
	<-done
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartbeam-data/pulse.report/internal/monitoring"
	"github.com/heartbeam-data/pulse.report/internal/rppg/pipeline"
	"github.com/heartbeam-data/pulse.report/internal/rppg/reference"
	"github.com/heartbeam-data/pulse.report/internal/rppg/storage/sqlite"
)

// runReferenceChannel consumes oximeter readings, feeding the comparator
// and the session store, until the events channel closes or the context
// ends.
func runReferenceChannel(ctx context.Context, port reference.PortInterface, comparator *reference.Comparator, store *sqlite.Store, sessionID string) {
	for {
		select {
		case r, ok := <-port.Events():
			if !ok {
				return
			}
			comparator.ObserveReference(r)

			ref := &sqlite.Reference{
				SessionID: sessionID,
				TNs:       r.At.UnixNano(),
				BPM:       r.BPM,
				SpO2:      r.SpO2,
			}
			if err := store.InsertReference(ref); err != nil {
				monitoring.Logf("failed to record reference reading: %v", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

// watchDebugSignal flips pipeline debug mode on SIGUSR1, the runtime
// equivalent of the -debug flag.
func watchDebugSignal(ctx context.Context, pipe *pipeline.Pipeline) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)

	for {
		select {
		case <-ch:
			pipe.SetDebug(!pipe.Debug())
		case <-ctx.Done():
			return
		}
	}
}

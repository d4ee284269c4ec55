package ingest

import (
	"sync"

	"github.com/scrypster/reverie/pkg/types"
)

// ProgressBroker holds the current ingestion progress record per upload and
// fans updates out to subscribers. Records are overwritten in place, never
// appended; percent is clamped so the sequence a consumer observes is
// monotonically non-decreasing until a terminal stage.
type ProgressBroker struct {
	mu      sync.Mutex
	records map[string]types.IngestionProgress
	subs    map[string][]chan types.IngestionProgress
}

// NewProgressBroker creates an empty broker.
func NewProgressBroker() *ProgressBroker {
	return &ProgressBroker{
		records: make(map[string]types.IngestionProgress),
		subs:    make(map[string][]chan types.IngestionProgress),
	}
}

// subscriberBuffer sizes subscriber channels. A slow consumer drops
// intermediate records rather than blocking the pipeline; the terminal
// record is always delivered because channels are closed only after it is
// buffered.
const subscriberBuffer = 16

// Publish records a progress update and delivers it to subscribers.
//
// Illegal stage transitions (anything after a terminal stage, or a stage
// regression) are ignored. Percent never decreases: a lower value is
// clamped up to the previous one.
func (b *ProgressBroker) Publish(progress types.IngestionProgress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.records[progress.UploadID]; ok {
		if !prev.Stage.CanTransitionTo(progress.Stage) {
			return
		}
		if progress.Percent < prev.Percent {
			progress.Percent = prev.Percent
		}
	}
	if progress.Stage == types.StageComplete {
		progress.Percent = 100
	}
	b.records[progress.UploadID] = progress

	for _, ch := range b.subs[progress.UploadID] {
		if progress.Stage.Terminal() {
			deliverTerminal(ch, progress)
			continue
		}
		select {
		case ch <- progress:
		default:
			// Slow consumer: drop this intermediate record.
		}
	}

	if progress.Stage.Terminal() {
		for _, ch := range b.subs[progress.UploadID] {
			close(ch)
		}
		delete(b.subs, progress.UploadID)
	}
}

// deliverTerminal buffers a terminal record even when the subscriber is
// behind, evicting its oldest pending records to make room. The broker holds
// its lock here so it is the only sender; the loop terminates because the
// consumer can only drain, never refill.
func deliverTerminal(ch chan types.IngestionProgress, record types.IngestionProgress) {
	for {
		select {
		case ch <- record:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel of progress records for an upload, starting
// with the current record if one exists. The channel is closed after the
// terminal record is delivered. The returned cancel function detaches the
// subscriber early (consumer disconnect).
func (b *ProgressBroker) Subscribe(uploadID string) (<-chan types.IngestionProgress, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan types.IngestionProgress, subscriberBuffer)

	if current, ok := b.records[uploadID]; ok {
		ch <- current
		if current.Stage.Terminal() {
			close(ch)
			delete(b.records, uploadID)
			return ch, func() {}
		}
	}

	b.subs[uploadID] = append(b.subs[uploadID], ch)
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[uploadID]
		for i, c := range chans {
			if c == ch {
				b.subs[uploadID] = append(chans[:i], chans[i+1:]...)
				close(c)
				break
			}
		}
	}
	return ch, cancel
}

// Peek reports the current record for an upload without consuming it.
// Existence checks use this; a terminal record stays available for whichever
// consumer actually observes it.
func (b *ProgressBroker) Peek(uploadID string) (types.IngestionProgress, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.records[uploadID]
	return record, ok
}

// Snapshot returns the current record for an upload. Observing a terminal
// record through Snapshot discards it: the ephemeral record's job is done
// once the consumer has seen the end of the sequence.
func (b *ProgressBroker) Snapshot(uploadID string) (types.IngestionProgress, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.records[uploadID]
	if !ok {
		return types.IngestionProgress{}, false
	}
	if record.Stage.Terminal() {
		delete(b.records, uploadID)
	}
	return record, true
}

// Forget drops the record and closes any subscribers for an upload.
func (b *ProgressBroker) Forget(uploadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[uploadID] {
		close(ch)
	}
	delete(b.subs, uploadID)
	delete(b.records, uploadID)
}

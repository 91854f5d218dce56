package probe

import (
	"errors"
	"os"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/perf"
)

// EventReader drains a perf event array exported by the probe. Each
// sample is the raw MapData envelope produced by the kernel side;
// callers decode it with xdp.DecodeMapData.
type EventReader struct {
	rd *perf.Reader
}

// NewEventReader opens a perf reader over the given events map.
func NewEventReader(m *ebpf.Map) (*EventReader, error) {
	rd, err := perf.NewReader(m, 4*os.Getpagesize())
	if err != nil {
		return nil, err
	}
	return &EventReader{rd: rd}, nil
}

// Read blocks until the next sample. It returns the raw sample bytes
// and the number of samples the kernel dropped since the last read.
// After Close, Read returns os.ErrClosed.
func (r *EventReader) Read() ([]byte, uint64, error) {
	rec, err := r.rd.Read()
	if err != nil {
		if errors.Is(err, perf.ErrClosed) {
			return nil, 0, os.ErrClosed
		}
		return nil, 0, err
	}
	return rec.RawSample, rec.LostSamples, nil
}

// Close shuts the reader down and unblocks any pending Read.
func (r *EventReader) Close() error {
	return r.rd.Close()
}

package model

import (
	"io"
	"sync"
)

// sliceStreamer replays a fixed list of items.
type sliceStreamer struct {
	mu     sync.Mutex
	items  []Item
	err    error
	next   int
	closed bool
}

// NewSliceStreamer returns a Streamer that yields items in order and then
// either io.EOF (err == nil) or err. Recv after Close returns io.EOF.
func NewSliceStreamer(items []Item, err error) Streamer {
	return &sliceStreamer{items: items, err: err}
}

func (s *sliceStreamer) Recv() (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, io.EOF
	}
	if s.next < len(s.items) {
		it := s.items[s.next]
		s.next++
		return it, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *sliceStreamer) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

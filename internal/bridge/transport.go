package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// maxFrameBytes caps a single newline-delimited frame. Oversized frames are
// treated the same as malformed ones: the read loop stops without surfacing
// an error to the guest.
const maxFrameBytes = 1 << 20

// Transport delivers envelopes to the other side of the boundary. Post is
// one-way: the protocol has no response path for guest-originated envelopes.
type Transport interface {
	Post(env Envelope) error
}

// Stream is a newline-delimited JSON transport over an io.ReadWriter, the
// postal medium a host honors when it embeds a panel over a pipe or socket.
type Stream struct {
	mu sync.Mutex // serializes writes
	w  io.Writer
	r  io.Reader
}

// NewStream wraps rw as an envelope stream.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{w: rw, r: rw}
}

// Post marshals env and writes it as a single frame.
func (s *Stream) Post(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("post %s envelope: %w", env.Kind, err)
	}

	return nil
}

// Serve reads frames until the stream closes or ctx is canceled, passing each
// well-formed envelope to sink. Frames that do not parse as envelopes are
// dropped: the channel is shared with unrelated actors and foreign traffic
// must never crash the guest.
func (s *Stream) Serve(ctx context.Context, sink func(Envelope)) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, maxFrameBytes), maxFrameBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			slog.Debug("bridge: dropping malformed frame", slog.String("error", err.Error()))
			continue
		}

		sink(env)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read envelope stream: %w", err)
	}

	return nil
}

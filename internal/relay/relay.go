package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/getcooked/interview-gateway/internal/observability"
	"github.com/getcooked/interview-gateway/internal/session"
	"github.com/getcooked/interview-gateway/internal/tts"
)

var (
	// ErrNoFeedback means the session is unknown or has no feedback to speak yet
	ErrNoFeedback = errors.New("no feedback available")
	// ErrUnexpectedContentType means the speech service did not answer with accepted audio
	ErrUnexpectedContentType = errors.New("unexpected content type from speech service")
	// ErrUpstream covers speech service failures before or during the stream
	ErrUpstream = errors.New("speech service failure")
	// ErrClientGone means a chunk could not be delivered to the client
	ErrClientGone = errors.New("client disconnected")
)

// DefaultChunkSize is the relay frame size used when none is configured
const DefaultChunkSize = 1024

// Options configure a Relay
type Options struct {
	ChunkSize    int
	ContentTypes []string
	// Timeout bounds the whole stream, synthesis included; zero disables it
	Timeout time.Duration
}

// Relay turns a session's stored feedback into an ordered stream of audio chunks
type Relay struct {
	store     *session.Store
	speech    tts.Synthesizer
	chunkSize int
	accepted  map[string]struct{}
	timeout   time.Duration
}

// New creates a relay
func New(store *session.Store, speech tts.Synthesizer, opts Options) *Relay {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	accepted := make(map[string]struct{}, len(opts.ContentTypes))
	for _, ct := range opts.ContentTypes {
		accepted[strings.ToLower(strings.TrimSpace(ct))] = struct{}{}
	}
	return &Relay{
		store:     store,
		speech:    speech,
		chunkSize: opts.ChunkSize,
		accepted:  accepted,
		timeout:   opts.Timeout,
	}
}

// Accepts reports whether a declared content type is an accepted audio type. Parameters are ignored.
func (r *Relay) Accepts(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := r.accepted[mediaType]
	return ok
}

// Stream synthesizes the session's feedback and hands it to send chunk by chunk, in order.
// send must not retain the slice. Cancellation of ctx is observed between chunks and
// the upstream body is always released. It returns the number of bytes delivered.
func (r *Relay) Stream(ctx context.Context, sessionID string, send func([]byte) error) (int, error) {
	s, err := r.store.Get(sessionID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoFeedback, err)
	}
	if !s.HasFeedback() {
		return 0, ErrNoFeedback
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	audio, err := r.speech.Synthesize(ctx, s.Feedback)
	if err != nil {
		if ctxErr := r.interrupted(ctx); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer audio.Body.Close()

	if !r.Accepts(audio.ContentType) {
		return 0, fmt.Errorf("%w: %q", ErrUnexpectedContentType, audio.ContentType)
	}

	buf := make([]byte, r.chunkSize)
	total := 0
	for {
		if err := r.interrupted(ctx); err != nil {
			return total, err
		}

		n, readErr := io.ReadFull(audio.Body, buf)
		last := errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF)
		if readErr != nil && !last {
			// bytes of a failed read are never forwarded
			if err := r.interrupted(ctx); err != nil {
				return total, err
			}
			return total, fmt.Errorf("%w: %w", ErrUpstream, readErr)
		}

		if n > 0 {
			if err := send(buf[:n]); err != nil {
				return total, fmt.Errorf("%w: %w", ErrClientGone, err)
			}
			total += n
			observability.RecordAudioBytes(n)
		}
		if last {
			return total, nil
		}
	}
}

// interrupted maps a finished ctx to the stream outcome: the stream timeout is an
// upstream failure, any other cancellation belongs to the caller
func (r *Relay) interrupted(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return err
}

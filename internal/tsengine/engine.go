// Package tsengine implements the transport-stream packet engine and
// per-PID section reassembler: it turns a raw byte stream into complete,
// CRC-validated PSI/DSM-CC sections and hands each one to whatever parser
// the dispatch table has registered for its PID and table_id.
package tsengine

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/metrics"
)

// Engine drives TS packet resynchronisation, per-PID section reassembly,
// and dispatch to registered table parsers. A single Engine is meant to be
// driven by one ingestion goroutine; its output (the dentry tree built by
// table parsers) is safe for concurrent readers.
type Engine struct {
	log      *slog.Logger
	parsers  *dispatch.ParserTable
	metrics  *metrics.Counters
	reassems map[uint16]*sectionReassembler

	stride int // 188 (bare) or 192 (ISDB timestamp-prefixed)
	offset int // byte offset of the TS packet within each stride
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the engine's logger (defaults to slog.Default()).
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics overrides the engine's counters (defaults to a fresh,
// unshared Counters).
func WithMetrics(m *metrics.Counters) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStride forces a fixed packet stride/offset instead of auto-detecting
// it from the first bytes fed in.
func WithStride(stride, offset int) Option {
	return func(e *Engine) { e.stride, e.offset = stride, offset }
}

// NewEngine creates an Engine dispatching accepted sections through
// parsers.
func NewEngine(parsers *dispatch.ParserTable, opts ...Option) *Engine {
	e := &Engine{
		log:      slog.Default(),
		parsers:  parsers,
		metrics:  &metrics.Counters{},
		reassems: make(map[uint16]*sectionReassembler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "tsengine")
	return e
}

// Metrics returns the engine's counters.
func (e *Engine) Metrics() *metrics.Counters { return e.metrics }

// Feed reads packets from r until EOF, reassembling PSI/DSM-CC sections
// and dispatching each complete, accepted one to its registered parser.
// Malformed packets and sections are dropped and logged; only a read error
// from r itself (other than EOF) is returned.
func (e *Engine) Feed(r io.Reader) error {
	detectBuf := make([]byte, 0, PacketSize+4)
	if e.stride == 0 {
		peek := make([]byte, 5)
		n, err := io.ReadFull(r, peek)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return err
		}
		e.stride, e.offset = DetectStride(peek[:n])
		detectBuf = append(detectBuf, peek[:n]...)
	}

	buf := make([]byte, e.stride)
	for {
		n := copy(buf, detectBuf)
		detectBuf = nil
		if n < e.stride {
			if _, err := io.ReadFull(r, buf[n:]); err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					return nil
				}
				return err
			}
		}

		e.metrics.PacketsSeen.Add(1)
		pkt, err := ParsePacket(buf[e.offset : e.offset+PacketSize])
		if err != nil {
			e.metrics.PacketsDroppedError.Add(1)
			e.log.Debug("dropping malformed packet", "error", err)
			continue
		}
		e.processPacket(pkt)
	}
}

// FeedPacket processes a single, already-demarcated 188-byte TS packet
// buffer. Exposed for callers (tests, or an adapter with its own framing)
// that don't want to go through an io.Reader.
func (e *Engine) FeedPacket(buf []byte) error {
	pkt, err := ParsePacket(buf)
	if err != nil {
		e.metrics.PacketsDroppedError.Add(1)
		return fmt.Errorf("tsengine: %w", err)
	}
	e.metrics.PacketsSeen.Add(1)
	e.processPacket(pkt)
	return nil
}

func (e *Engine) processPacket(pkt *Packet) {
	pid := pkt.Header.PID
	if pid == NullPID {
		return
	}
	if pkt.Header.TransportErrorIndicator {
		return
	}
	if !e.parsers.HasPID(pid) {
		return
	}
	if pkt.Header.TransportScramblingCtrl != 0 {
		e.log.Warn("dropping scrambled PSI payload", "pid", pid)
		return
	}

	r, ok := e.reassems[pid]
	if !ok {
		r = newSectionReassembler(pid, e.log)
		e.reassems[pid] = r
	}

	for _, section := range r.Add(pkt.Header, pkt.Payload) {
		e.dispatchSection(pid, section)
	}
}

func (e *Engine) dispatchSection(pid uint16, section []byte) {
	if len(section) < 1 {
		return
	}
	tableID := section[0]
	parse, _, ok := e.parsers.Lookup(pid, tableID)
	if !ok {
		e.log.Debug("no parser registered for table_id on this pid", "pid", pid, "table_id", tableID)
		return
	}
	if err := parse(pid, section); err != nil {
		e.log.Warn("section parser rejected section", "pid", pid, "table_id", tableID, "error", err)
	}
}

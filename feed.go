package demuxfs

import (
	"io"
	"log/slog"

	"github.com/leandrotsampa/demuxfs/internal/descriptor"
	"github.com/leandrotsampa/demuxfs/internal/dispatch"
	"github.com/leandrotsampa/demuxfs/internal/metrics"
	"github.com/leandrotsampa/demuxfs/internal/tables"
	"github.com/leandrotsampa/demuxfs/internal/tsengine"
)

// Reserved PIDs from spec §6, mirroring original_source/src/ts.h's PID map.
const (
	pidPAT  = 0x0000
	pidCAT  = 0x0001
	pidNIT  = 0x0010
	pidSDT  = 0x0011 // also BAT
	pidHEIT = 0x0012
	pidRST  = 0x0013
	pidTDT  = 0x0014 // also TOT
	pidDCT  = 0x0017
	pidDIT  = 0x001E
	pidSIT  = 0x001F
	pidPCAT = 0x0022
	pidSDTT1 = 0x0023
	pidBIT  = 0x0024
	pidNBIT = 0x0025 // also LDT
	pidMEIT = 0x0026
	pidLEIT = 0x0027
	pidSDTT2 = 0x0028
	pidCDT  = 0x0029

	tableIDPAT = 0x00
	tableIDNIT = 0x40
	tableIDSDT = 0x42
)

// Feeder is the top-level facade wiring the packet engine, the dispatch
// tables, the table parsers, and the dentry root together, the Go
// analogue of original_source/src/demuxfs.c's struct demuxfs_data plus its
// ts_parse_packet driver loop.
type Feeder struct {
	log     *slog.Logger
	root    *Root
	engine  *tsengine.Engine
	parsers *dispatch.ParserTable
	tables  *dispatch.TableStore
	ctx     *tables.Context
}

// Option configures a Feeder at construction time.
type Option func(*feederConfig)

type feederConfig struct {
	log    *slog.Logger
	stride int
	offset int
}

// WithLogger overrides the Feeder's logger (defaults to slog.Default()).
func WithLogger(log *slog.Logger) Option {
	return func(c *feederConfig) { c.log = log }
}

// WithStride forces a fixed packet stride/offset instead of
// auto-detecting it from the first bytes fed in (188 bare, 192 with a
// 4-byte ISDB timestamp prefix).
func WithStride(stride, offset int) Option {
	return func(c *feederConfig) { c.stride, c.offset = stride, offset }
}

// NewFeeder creates a Feeder with a freshly bootstrapped dentry root and
// the reserved-PID dispatcher entries from spec §6 already registered.
func NewFeeder(opts ...Option) *Feeder {
	cfg := &feederConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.log.With("component", "demuxfs")

	root := NewRoot()
	root.Bootstrap()

	parsers := dispatch.NewParserTable()
	tableStore := dispatch.NewTableStore()
	m := &metrics.Counters{}
	ctx := tables.NewContext(root.Dentry(), parsers, tableStore, descriptor.NewRegistry(), log, m)

	f := &Feeder{log: log, root: root, parsers: parsers, tables: tableStore, ctx: ctx}
	f.registerReservedPIDs()

	var engineOpts []tsengine.Option
	engineOpts = append(engineOpts, tsengine.WithLogger(log), tsengine.WithMetrics(m))
	if cfg.stride != 0 {
		engineOpts = append(engineOpts, tsengine.WithStride(cfg.stride, cfg.offset))
	}
	f.engine = tsengine.NewEngine(parsers, engineOpts...)

	return f
}

// registerReservedPIDs seeds the dispatcher with every statically known
// PID from spec §6. PAT, NIT and SDT get their bespoke parsers from the
// start (ISDB-Tb carries NIT and SDT on their reserved PIDs whether or not
// a PAT program_number=0 entry exists); every other reserved PID gets the
// placeholder parser. PMT and DSM-CC registrations, and NIT on any other
// PID, are added dynamically once PAT or PMT announces the PIDs carrying
// them (spec §4.4's dispatcher-growth contract).
func (f *Feeder) registerReservedPIDs() {
	f.parsers.Register(pidPAT, dispatch.Exactly(tableIDPAT), f.ctx.ParsePAT, nil)
	f.parsers.Register(pidNIT, dispatch.Exactly(tableIDNIT), f.ctx.ParseNIT, nil)
	f.parsers.Register(pidSDT, dispatch.Exactly(tableIDSDT), f.ctx.ParseSDT, nil)
	f.parsers.Register(pidSDT, dispatch.Any, f.ctx.ParsePlaceholder, nil) // BAT, same PID

	for _, pid := range []uint16{
		pidCAT, pidHEIT, pidRST, pidTDT, pidDCT, pidDIT, pidSIT,
		pidPCAT, pidSDTT1, pidBIT, pidNBIT, pidMEIT, pidLEIT, pidSDTT2, pidCDT,
	} {
		f.parsers.Register(pid, dispatch.Any, f.ctx.ParsePlaceholder, nil)
	}
}

// Root returns the Feeder's dentry root.
func (f *Feeder) Root() *Root { return f.root }

// Metrics returns the Feeder's ingestion counters.
func (f *Feeder) Metrics() *metrics.Counters { return f.ctx.Metrics }

// Feed reads packets from r until EOF, parsing every complete PSI/DSM-CC
// section it reassembles and splicing the result into the dentry tree.
// This is the feed(bytes) entry point from spec §6.
func (f *Feeder) Feed(r io.Reader) error {
	return f.engine.Feed(r)
}

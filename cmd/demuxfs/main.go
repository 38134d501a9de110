// Command demuxfs reads an ISDB-Tb transport stream file and prints the
// resulting PSI/DSM-CC dentry tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	demuxfs "github.com/leandrotsampa/demuxfs"
	"github.com/leandrotsampa/demuxfs/internal/dentry"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: demuxfs <path-to-ts-file>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		slog.Error("demuxfs failed", "error", err)
		os.Exit(1)
	}
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	feeder := demuxfs.NewFeeder()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feeder.Feed(f)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	m := feeder.Metrics().Snapshot()
	slog.Info("feed complete",
		"packets_seen", m.PacketsSeen,
		"sections_accepted", m.SectionsAccepted,
		"sections_rejected_crc", m.SectionsRejectedCRC,
		"sections_rejected_len", m.SectionsRejectedLen,
		"tables_superseded", m.TablesSuperseded,
	)

	printTree(feeder.Root().Dentry(), "")
	return nil
}

func printTree(d *dentry.Dentry, prefix string) {
	for _, child := range d.Children() {
		switch {
		case child.IsSymlink():
			fmt.Printf("%s%s -> %s\n", prefix, child.Name(), child.SymlinkTarget())
		case child.IsDir():
			fmt.Printf("%s%s/\n", prefix, child.Name())
			printTree(child, prefix+"  ")
		default:
			fmt.Printf("%s%s = %s\n", prefix, child.Name(), child.Content())
		}
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/mit-pdos/flashjournal/blockdev"
	"github.com/mit-pdos/flashjournal/txn"
)

// benchOp mirrors the teacher's util/stats.Op: a running count and total
// duration for one kind of operation, printed as a table at the end.
type benchOp struct {
	count int
	total time.Duration
}

func (o *benchOp) record(d time.Duration) {
	o.count++
	o.total += d
}

func (o *benchOp) microsPerOp() float64 {
	if o.count == 0 {
		return 0
	}
	return float64(o.total.Microseconds()) / float64(o.count)
}

func newBenchCmd() *cobra.Command {
	var iterations int
	var sectorSize int64
	var storeSectors uint64
	var totalSectors int64
	var payloadSectors uint64

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark begin/write/commit against an in-memory device",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev := blockdev.NewMemDevice(sectorSize, totalSectors*sectorSize)
			e, err := txn.Mount(dev, txn.Config{
				StoreSizeSectors:  storeSectors,
				OverwriteExisting: true,
			})
			if err != nil {
				return err
			}
			if err := e.SetDirectIO(false); err != nil {
				return err
			}

			var begin, write, commit benchOp
			payload := make([]byte, payloadSectors*uint64(sectorSize))
			targetSector := e.QuerySectorCount() - payloadSectors

			for i := 0; i < iterations; i++ {
				start := time.Now()
				if err := e.Begin(); err != nil {
					return err
				}
				begin.record(time.Since(start))

				start = time.Now()
				if err := e.Write(payload, targetSector, payloadSectors); err != nil {
					return err
				}
				write.record(time.Since(start))

				start = time.Now()
				if err := e.End(true); err != nil {
					return err
				}
				commit.record(time.Since(start))
			}

			tbl := table.New("op", "count", "us/op")
			tbl.AddRow("begin", begin.count, fmt.Sprintf("%.1f", begin.microsPerOp()))
			tbl.AddRow("write", write.count, fmt.Sprintf("%.1f", write.microsPerOp()))
			tbl.AddRow("commit", commit.count, fmt.Sprintf("%.1f", commit.microsPerOp()))
			tbl.Print()
			return nil
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", 1000, "number of begin/write/commit cycles")
	cmd.Flags().Int64Var(&sectorSize, "sector-size", 4096, "sector size in bytes")
	cmd.Flags().Uint64Var(&storeSectors, "store-sectors", 16, "sectors reserved for the journal store")
	cmd.Flags().Int64Var(&totalSectors, "total-sectors", 1024, "total sectors of the in-memory device")
	cmd.Flags().Uint64Var(&payloadSectors, "payload-sectors", 1, "sectors written per transaction")
	return cmd
}

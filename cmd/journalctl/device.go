package main

import (
	"github.com/spf13/cobra"

	"github.com/mit-pdos/flashjournal/blockdev"
)

// commonFlags are the disk-image geometry flags shared by every subcommand
// that touches a real file, mirroring the teacher's cmd/* benchmarks which
// each take --disk/--size style flags via the standard flag package; here
// they are pflag-backed cobra flags instead.
type commonFlags struct {
	image        string
	sectorSize   int64
	totalSectors int64
	storeSectors uint64
}

func addCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().StringVar(&f.image, "image", "journal.img", "path to the disk image")
	cmd.Flags().Int64Var(&f.sectorSize, "sector-size", 4096, "sector size in bytes")
	cmd.Flags().Int64Var(&f.totalSectors, "total-sectors", 1024, "total sectors in the image")
	cmd.Flags().Uint64Var(&f.storeSectors, "store-sectors", 16, "sectors reserved for the journal store")
}

func (f *commonFlags) openDevice() (*blockdev.FileDevice, error) {
	return blockdev.OpenFileDevice(f.image, f.sectorSize, f.totalSectors*f.sectorSize)
}

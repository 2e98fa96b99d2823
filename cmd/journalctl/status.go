package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/mit-pdos/flashjournal/store"
)

func colorStatus(s store.Status) string {
	switch s {
	case store.StatusReady:
		return color.GreenString(s.String())
	case store.StatusOpen:
		return color.YellowString(s.String())
	case store.StatusCommit:
		return color.RedString(s.String())
	default:
		return color.RedString("UNKNOWN")
	}
}

// readMaster reads and decodes the master record without going through
// txn.Mount, so inspecting a store never mutates it the way a real mount
// would (spec §4.3's mount sequence always ends by resetting status to
// INIT, which would make "status" lie about what a crash left behind).
func readMaster(f *commonFlags) (*store.MasterRecord, error) {
	dev, err := f.openDevice()
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	storeOffsetSector := uint64(f.totalSectors) - f.storeSectors
	st := store.New(dev, storeOffsetSector, f.storeSectors)
	buf := make([]byte, f.sectorSize)
	if err := st.ReadSector(store.MasterSector(f.storeSectors), 1, buf); err != nil {
		return nil, err
	}
	return store.DecodeMasterRecord(buf)
}

func newStatusCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the journal store's master record",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readMaster(f)
			if err != nil {
				return err
			}

			valid := m.Magic == store.Magic
			tbl := table.New("field", "value")
			tbl.AddRow("magic valid", valid)
			tbl.AddRow("status", colorStatus(m.Status))
			tbl.AddRow("store_size_sectors", m.StoreSizeSectors)
			tbl.AddRow("store_offset_sector", m.StoreOffsetSector)
			tbl.AddRow("next_free_sector", m.NextFreeSector)
			tbl.AddRow("volume_total_size", m.VolumeTotalSize)
			tbl.AddRow("volume_sector_size", m.VolumeSectorSize)
			tbl.Print()

			if !valid {
				fmt.Println(color.YellowString("warning: magic does not match; this store has never been formatted"))
			}
			return nil
		},
	}
	addCommonFlags(cmd, f)
	return cmd
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/mit-pdos/flashjournal/store"
)

func newDumpCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "List the operation entries currently buffered in the journal store",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readMaster(f)
			if err != nil {
				return err
			}
			if m.Magic != store.Magic {
				return fmt.Errorf("store has never been formatted")
			}

			dev, err := f.openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			st := store.New(dev, m.StoreOffsetSector, m.StoreSizeSectors)
			tbl := table.New("cursor", "target_sector", "sector_count", "header_ok", "data_ok")

			cursor := uint64(0)
			n := 0
			for cursor < m.NextFreeSector {
				hdrBuf := make([]byte, f.sectorSize)
				if err := st.ReadSector(cursor, 1, hdrBuf); err != nil {
					return err
				}
				hdr, err := store.DecodeEntryHeader(hdrBuf)
				if err != nil {
					return err
				}
				headerOK := hdr.VerifyHeader() == nil

				dataOK := false
				if headerOK {
					data := make([]byte, hdr.SectorCount*uint64(f.sectorSize))
					if err := st.ReadSector(cursor+1, hdr.SectorCount, data); err == nil {
						dataOK = hdr.VerifyData(data) == nil
					}
				}

				tbl.AddRow(cursor, hdr.TargetSector, hdr.SectorCount,
					okString(headerOK), okString(dataOK))
				cursor += 1 + hdr.SectorCount
				n++
			}
			tbl.Print()
			fmt.Printf("%d entries, status %s\n", n, m.Status)
			return nil
		},
	}
	addCommonFlags(cmd, f)
	return cmd
}

func okString(ok bool) string {
	if ok {
		return color.GreenString("ok")
	}
	return color.RedString("corrupt")
}

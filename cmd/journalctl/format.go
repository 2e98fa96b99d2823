package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mit-pdos/flashjournal/txn"
)

func newFormatCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Create or reformat a journal store on a disk image",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := f.openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			_, err = txn.Mount(dev, txn.Config{
				StoreSizeSectors:  f.storeSectors,
				OverwriteExisting: true,
			})
			if err != nil {
				return err
			}
			fmt.Printf("formatted %s: %d total sectors, %d reserved for the journal store\n",
				f.image, f.totalSectors, f.storeSectors)
			return nil
		},
	}
	addCommonFlags(cmd, f)
	return cmd
}

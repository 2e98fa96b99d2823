package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mit-pdos/flashjournal/txn"
)

func newRecoverCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Force recovery of an interrupted transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := f.openDevice()
			if err != nil {
				return err
			}
			defer dev.Close()

			e, err := txn.Mount(dev, txn.Config{
				StoreSizeSectors: f.storeSectors,
				ReplayAfterMount: true,
			})
			if err != nil {
				return err
			}
			fmt.Printf("recovery complete, status now %s\n", e.Status())
			return nil
		},
	}
	addCommonFlags(cmd, f)
	return cmd
}

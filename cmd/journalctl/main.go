// Command journalctl is the CLI example spec §1 mentions as ordinary
// plumbing around the journal engine: format a fresh store, print its
// status, dump its buffered entries, force recovery, or benchmark it
// against an in-memory device. Modeled on JinVei-Laputa's cobra-based CLI,
// which reports command errors with fatih/color the same way below.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "journalctl",
		Short: "Inspect and drive a flashjournal store on a disk image",
	}
	root.AddCommand(
		newFormatCmd(),
		newStatusCmd(),
		newDumpCmd(),
		newRecoverCmd(),
		newBenchCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}

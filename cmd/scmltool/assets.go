package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Faultbox/chophuman/internal/assets"
	"github.com/Faultbox/chophuman/internal/logger"
	"github.com/Faultbox/chophuman/pkg/formats"
)

func newAssetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assets <file.scml>",
		Short: "Check that every referenced image exists and matches its size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := formats.ParseSCMLFile(args[0], a.codecOptions()...)
			if err != nil {
				return err
			}

			loader := assets.NewLoader(a.cfg.Assets, logger.Named("assets"))
			reports, verifyErr := loader.Verify(doc.Manifest)

			var total uint64
			failed := 0
			for _, r := range reports {
				status, kind, size := "ok", "-", "-"
				if r.Image != nil {
					kind = r.Image.Kind
					size = humanize.Bytes(uint64(r.Image.Bytes))
					total += uint64(r.Image.Bytes)
				}
				if r.Err != nil {
					status = "FAILED"
					failed++
				}
				fmt.Fprintf(a.out, "%-6s %-32s %-5s %4dx%-4d %10s  %s\n",
					status, r.File.Name, kind, r.File.Width, r.File.Height, size, r.File.Bone)
			}

			fmt.Fprintln(a.out)
			fmt.Fprintf(a.out, "%d images, %d failed, %s total\n", len(reports), failed, humanize.Bytes(total))
			return verifyErr
		},
	}
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/chophuman/internal/assets"
	"github.com/Faultbox/chophuman/internal/logger"
	"github.com/Faultbox/chophuman/pkg/formats"
)

func newRetargetCmd(a *app) *cobra.Command {
	var (
		entityName string
		output     string
		withAssets bool
	)
	cmd := &cobra.Command{
		Use:   "retarget <file.scml>",
		Short: "Move every animation onto a new rest pose",
		Long: `Retarget reads the rest animation (two keyframes: the original rest pose
and the new one), adds their difference to every keyframe of every other
animation and writes the result.

By default the input file is replaced in place and keeps referencing its
existing images. With --output in another directory, pass --with-assets to
copy the images next to the new file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if output == "" {
				output = input
			}
			log := logger.Named("retarget")

			doc, entity, err := a.openEntity(input, entityName)
			if err != nil {
				return err
			}
			set := entity.Set

			rest := a.cfg.Retarget.RestAnimation
			if err := set.RetargetWith(rest); err != nil {
				return fmt.Errorf("retargeting %q: %w", set.Name, err)
			}
			if err := set.Validate(); err != nil {
				return fmt.Errorf("retargeted set %q is invalid: %w", set.Name, err)
			}
			log.Info("retargeted",
				zap.String("entity", set.Name),
				zap.String("rest", rest),
				zap.Int("animations", len(set.Animations)))

			if withAssets {
				images, err := assets.NewLoader(a.cfg.Assets, logger.Named("assets")).SkinImages(doc.Manifest)
				if err != nil {
					return err
				}
				if err := formats.ExportSCMLFile(set, images, output, a.codecOptions()...); err != nil {
					return err
				}
			} else {
				if filepath.Dir(output) != filepath.Dir(input) {
					log.Warn("output is in another directory; image paths still point next to the input",
						zap.String("input", input), zap.String("output", output))
				}
				if err := formats.WriteSCMLFile(set, doc.Manifest, output, a.codecOptions()...); err != nil {
					return err
				}
			}

			fmt.Fprintf(a.out, "Retargeted %d animations of %q onto %q -> %s\n", len(set.Animations)-1, set.Name, rest, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&entityName, "entity", "e", "", "entity to retarget (default: first)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: replace the input)")
	cmd.Flags().StringVar(&a.overrides.RestAnimation, "rest", "", "rest animation name (default from config: rest)")
	cmd.Flags().StringVar(&a.overrides.Generator, "generator", "", "generator name written to the file")
	cmd.Flags().StringVar(&a.overrides.Encoding, "encoding", "", "character set of the written file, e.g. euc-kr (default: UTF-8)")
	cmd.Flags().BoolVar(&withAssets, "with-assets", false, "load the images and write them next to the output")
	return cmd
}

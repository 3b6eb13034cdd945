package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/Faultbox/chophuman/pkg/formats"
	"github.com/Faultbox/chophuman/pkg/rig"
)

func newInfoCmd(a *app) *cobra.Command {
	var (
		entityName string
		validate   bool
	)
	cmd := &cobra.Command{
		Use:   "info <file.scml>",
		Short: "Show entities, animations and keyframes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := formats.ParseSCMLFile(args[0], a.codecOptions()...)
			if err != nil {
				return err
			}

			sets := make([]*rig.AnimationSet, 0, len(doc.Entities))
			if entityName != "" {
				entity, err := doc.Entity(entityName)
				if err != nil {
					return err
				}
				sets = append(sets, entity.Set)
			} else {
				for _, entity := range doc.Entities {
					sets = append(sets, entity.Set)
				}
			}

			fmt.Fprintf(a.out, "File:      %s\n", args[0])
			fmt.Fprintf(a.out, "Generator: %s %s (SCML %s)\n", doc.Generator, doc.GeneratorVersion, doc.SCMLVersion)
			fmt.Fprintf(a.out, "Images:    %d\n", len(doc.Manifest.Files()))

			var problems error
			for _, set := range sets {
				printSet(a, set)
				if !validate {
					continue
				}
				if err := set.Validate(); err != nil {
					fmt.Fprintf(a.out, "  INVALID: %v\n", err)
					problems = multierr.Append(problems, fmt.Errorf("entity %q: %w", set.Name, err))
				}
			}
			return problems
		},
	}
	cmd.Flags().StringVarP(&entityName, "entity", "e", "", "only show this entity")
	cmd.Flags().BoolVar(&validate, "validate", false, "check keyframe bookkeeping and pose shapes")
	return cmd
}

func printSet(a *app, set *rig.AnimationSet) {
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "Entity %d: %s\n", set.ID, set.Name)

	if state := set.EntityState(); state != nil {
		fmt.Fprintf(a.out, "  Bones: %d\n", len(state.Bones))
		for _, b := range state.Bones {
			parent := "-"
			if p := state.Bone(b.Parent); p != nil {
				parent = p.Name
			}
			fmt.Fprintf(a.out, "    %-3d %-20s parent %s\n", b.ID, b.Name, parent)
		}
		fmt.Fprintf(a.out, "  Skins: %d\n", len(state.Skins))
		for _, s := range state.Skins {
			parent := "-"
			if p := state.Bone(s.Parent); p != nil {
				parent = p.Name
			}
			fmt.Fprintf(a.out, "    %-3d %-20s bone %s\n", s.ID, s.Name, parent)
		}
	}

	fmt.Fprintf(a.out, "  Animations: %d\n", len(set.Animations))
	for _, anim := range set.Animations {
		loop := ""
		if anim.Looping {
			loop = ", looping"
		}
		fmt.Fprintf(a.out, "    %-20s length %d%s, %d keyframes\n", anim.Name, anim.Length, loop, len(anim.Keyframes))
		for _, kf := range anim.Keyframes {
			fmt.Fprintf(a.out, "      #%-3d time %-6d length %d\n", kf.ID, kf.Time, kf.Length)
		}
	}
}

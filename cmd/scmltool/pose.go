package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Faultbox/chophuman/pkg/rig"
)

func newPoseCmd(a *app) *cobra.Command {
	var entityName string
	cmd := &cobra.Command{
		Use:   "pose <file.scml> <animation> <time>",
		Short: "Sample an animation and print the pose",
		Long: `Sample an animation at a time (in frames, fractions allowed) and print
the transform of every bone and skin. Poses are world-space unless --local
is given.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid time %q: %w", args[2], err)
			}

			_, entity, err := a.openEntity(args[0], entityName)
			if err != nil {
				return err
			}
			anim, ok := entity.Set.Animation(args[1])
			if !ok {
				return fmt.Errorf("%w: no animation %q in %q", rig.ErrMissingReference, args[1], entity.Set.Name)
			}
			if t < 0 || t > float64(anim.Length) {
				return fmt.Errorf("time %v outside animation %q (0..%d)", t, anim.Name, anim.Length)
			}

			if a.cfg.Playback.NoLooping && anim.Looping {
				anim = anim.Clone()
				anim.Looping = false
			}
			pose, err := anim.Pose(t)
			if err != nil {
				return err
			}
			space := "local"
			if a.cfg.Playback.Flatten {
				pose = pose.Flatten()
				space = "world"
			}

			fmt.Fprintf(a.out, "%s @ %s (%s)\n", anim.Name, a.num(t), space)
			fmt.Fprintf(a.out, "%-5s %-20s %10s %10s %10s %8s %8s\n", "kind", "name", "x", "y", "angle", "scale_x", "scale_y")
			for _, b := range pose.Bones {
				printNode(a, &b.Node)
			}
			for _, s := range pose.Skins {
				printNode(a, &s.Node)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&entityName, "entity", "e", "", "entity to sample (default: first)")
	cmd.Flags().BoolVar(&a.overrides.Local, "local", false, "print parent-relative transforms")
	cmd.Flags().BoolVar(&a.overrides.NoLooping, "no-looping", false, "hold the last keyframe instead of blending back to the first")
	return cmd
}

func printNode(a *app, n *rig.Node) {
	t := n.Transform
	fmt.Fprintf(a.out, "%-5s %-20s %10s %10s %10s %8s %8s\n",
		n.Kind, n.Name, a.num(t.X), a.num(t.Y), a.num(t.Angle), a.num(t.ScaleX), a.num(t.ScaleY))
}

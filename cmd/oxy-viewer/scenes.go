package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/Carmen-Shannon/oxy-viewer/engine/scene"
	"github.com/spf13/cobra"
)

func newScenesCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "List the scene catalog, including models found in the models directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			catalog, _, err := loadCatalog(cfg, slog.New(slog.DiscardHandler))
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), catalog)
		},
	}
	cmd.AddCommand(newScenesAddCommand(flags), newScenesRemoveCommand(flags))
	return cmd
}

func newScenesAddCommand(flags *rootFlags) *cobra.Command {
	var (
		name    string
		light   []float32
		ambient float32
	)
	cmd := &cobra.Command{
		Use:   "add <model.glb>",
		Short: "Add a scene to the catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			catalog := scene.NewCatalog()
			if err := catalog.Load(cfg.Scenes.Catalog); err != nil {
				return err
			}

			s := scene.Scene{
				Name:     name,
				MeshPath: scene.NormalizePath(args[0]),
			}
			if s.Name == "" {
				s.Name = scene.NameFromPath(s.MeshPath)
			}
			if cmd.Flags().Changed("light") {
				if len(light) != 3 {
					return fmt.Errorf("--light wants 3 values, got %d", len(light))
				}
				s.LightPos = &[3]float32{light[0], light[1], light[2]}
			}
			if cmd.Flags().Changed("ambient") {
				s.AmbientIntensity = &ambient
			}
			if err := catalog.Add(s); err != nil {
				return err
			}
			return catalog.Save(cfg.Scenes.Catalog)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "scene name (default: the file name)")
	cmd.Flags().Float32SliceVar(&light, "light", nil, "light position x,y,z")
	cmd.Flags().Float32Var(&ambient, "ambient", scene.DefaultAmbientIntensity, "ambient intensity")
	return cmd
}

func newScenesRemoveCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a scene from the catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			catalog := scene.NewCatalog()
			if err := catalog.Load(cfg.Scenes.Catalog); err != nil {
				return err
			}
			if err := catalog.Remove(args[0]); err != nil {
				return err
			}
			return catalog.Save(cfg.Scenes.Catalog)
		},
	}
}

func printCatalog(out io.Writer, c scene.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tMESH\tLIGHT\tAMBIENT")
	for i, s := range c.Scenes() {
		l := s.Light()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%g,%g,%g\t%g\n", i, s.Name, s.MeshPath, l[0], l[1], l[2], s.Ambient())
	}
	return tw.Flush()
}

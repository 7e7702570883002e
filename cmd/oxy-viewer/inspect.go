package main

import (
	"cmp"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Carmen-Shannon/oxy-viewer/common"
	"github.com/Carmen-Shannon/oxy-viewer/engine/loader"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <model.glb>",
		Short: "Decode a model without a GPU and print its primitives, materials and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithDecodeWorkers(1))
			s, err := l.Load(args[0])
			if err != nil {
				return err
			}
			return printScene(cmd.OutOrStdout(), s)
		},
	}
}

func printScene(out io.Writer, s *common.ImportedScene) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	var vertices, indices int
	for _, p := range s.Primitives {
		vertices += len(p.Vertices)
		indices += len(p.Indices)
	}
	fmt.Fprintf(tw, "scene\t%s\n", s.Name)
	fmt.Fprintf(tw, "primitives\t%d\t(%d vertices, %d triangles)\n", len(s.Primitives), vertices, indices/3)
	fmt.Fprintf(tw, "materials\t%d\n", len(s.Materials))
	fmt.Fprintf(tw, "images\t%d\n", len(s.Images))

	if len(s.Primitives) > 0 {
		fmt.Fprintln(tw, "\nPRIMITIVE\tVERTICES\tINDICES\tMATERIAL")
		for _, p := range s.Primitives {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", p.Name, len(p.Vertices), len(p.Indices), indexOrNone(p.MaterialIndex))
		}
	}
	if len(s.Materials) > 0 {
		fmt.Fprintln(tw, "\nMATERIAL\tBASE COLOR\tTEXTURE")
		for _, m := range s.Materials {
			c := m.BaseColor
			fmt.Fprintf(tw, "%s\t%.3g %.3g %.3g %.3g\t%s\n", m.Name, c[0], c[1], c[2], c[3], indexOrNone(m.BaseColorTexture))
		}
	}
	if len(s.Images) > 0 {
		fmt.Fprintln(tw, "\nIMAGE\tSIZE\tCHANNELS\tMIME")
		for i, img := range s.Images {
			st := img.Staging
			fmt.Fprintf(tw, "%s\t%dx%d\t%d\t%s\n", cmp.Or(img.Name, fmt.Sprintf("image%d", i)),
				st.Width, st.Height, st.Channels, cmp.Or(img.MimeType, "-"))
		}
	}
	return tw.Flush()
}

func indexOrNone(i int) string {
	if i < 0 {
		return "-"
	}
	return fmt.Sprint(i)
}

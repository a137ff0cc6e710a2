package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chriscow/speechstack-go/pkg/model"
	"github.com/chriscow/speechstack-go/pkg/model/onnx"
	"github.com/chriscow/speechstack-go/pkg/wakeword"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model inspection commands",
}

var modelsInspectCmd = &cobra.Command{
	Use:   "inspect <dir>",
	Short: "Print the inputs and outputs of the filter, encode and detect models",
	Long: `Read the ONNX metadata of filter.onnx, encode.onnx and detect.onnx in dir
and print each declared tensor. Dynamic dimensions are shown as 1.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, file := range []string{wakeword.FilterFile, wakeword.EncodeFile, wakeword.DetectFile} {
			path := filepath.Join(args[0], file)
			desc, err := onnx.Describe(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, file)
			fmt.Fprint(out, formatDescriptor(desc))
		}
		return nil
	},
}

func formatDescriptor(desc model.Descriptor) string {
	var b strings.Builder
	for _, in := range desc.Inputs {
		fmt.Fprintf(&b, "  in  %-12s %v\n", in.Name, in.Shape)
	}
	for _, o := range desc.Outputs {
		fmt.Fprintf(&b, "  out %-12s %v\n", o.Name, o.Shape)
	}
	return b.String()
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/recordio/imgrec"
)

var (
	describeImglist    string
	describeLabelWidth int
	describeNumParts   int
	describeVerbose    bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <path.rec>",
	Short: "Report shard and label statistics for a record-I/O archive",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		path := args[0]
		log := imgrec.NewLogger(os.Stderr, describeVerbose)

		rows := [][]string{}
		for part := 0; part < describeNumParts; part++ {
			src, err := imgrec.OpenRecordSource(path, part, describeNumParts, 0, log)
			if err != nil {
				die("opening shard %d: %v", part, err)
			}
			records, byteTotal := 0, 0
			for {
				chunk, err := src.NextChunk()
				if err != nil {
					if !errors.Is(err, io.EOF) {
						die("reading shard %d: %v", part, err)
					}
					break
				}
				records += chunk.RecordCount()
				byteTotal += chunk.ByteLen()
			}
			src.Close()
			rows = append(rows, []string{
				fmt.Sprintf("%d/%d", part, describeNumParts),
				fmt.Sprintf("%d", records),
				fmt.Sprintf("%d", byteTotal),
			})
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"shard", "records", "bytes"})
		table.SetBorder(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.AppendBulk(rows)
		table.Render()

		if describeImglist != "" {
			labels, err := imgrec.LoadLabelTable(describeImglist, describeLabelWidth)
			if err != nil {
				die("loading label list: %v", err)
			}
			fmt.Printf("\nlabel list: %s (width=%d)\n", describeImglist, labels.Width())
		}
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeImglist, "imglist", "", "optional label list file")
	describeCmd.Flags().IntVar(&describeLabelWidth, "label-width", 1, "floats per label in the list file")
	describeCmd.Flags().IntVar(&describeNumParts, "num-parts", 1, "number of shards to report on")
	describeCmd.Flags().BoolVar(&describeVerbose, "verbose", false, "verbose diagnostic logging")
	rootCmd.AddCommand(describeCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/recordio/imgrec"
	"github.com/recordio/imgrec/codec"
)

var (
	iterImglist    string
	iterLabelWidth int
	iterChannels   int
	iterHeight     int
	iterWidth      int
	iterThreads    int
	iterNumParts   int
	iterPartIndex  int
	iterShuffle    bool
	iterSeed       int32
	iterLimit      int
	iterVerbose    bool
)

var iterateCmd = &cobra.Command{
	Use:   "iterate <path.rec>",
	Short: "Iterate a record-I/O image archive, reporting progress",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		path := args[0]
		log := imgrec.NewLogger(os.Stderr, iterVerbose)

		cfg := imgrec.ParserConfig{
			PathImageList:     iterImglist,
			PathImageRec:      path,
			LabelWidth:        iterLabelWidth,
			DataShape:         imgrec.DataShape{Channels: iterChannels, Height: iterHeight, Width: iterWidth},
			PreprocessThreads: iterThreads,
			Verbose:           iterVerbose,
			NumParts:          iterNumParts,
			PartIndex:         iterPartIndex,
		}

		registry := codec.NewRegistry(codec.StdlibWebP)
		parser, err := imgrec.NewParser(cfg, registry, nil, log)
		if err != nil {
			die("constructing parser: %v", err)
		}

		prefetcher := imgrec.NewPrefetcher(parser, log)
		it := imgrec.NewIterator(prefetcher, imgrec.IterConfig{Shuffle: iterShuffle, Seed: iterSeed, Verbose: iterVerbose})
		defer it.Close()

		bold := color.New(color.Bold)
		_, _ = bold.Println("ITERATE")
		fmt.Printf("  archive: %s\n", path)

		total := -1
		if iterLimit > 0 {
			total = iterLimit
		}
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription("decoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionClearOnFinish(),
		)

		count := 0
		for {
			if iterLimit > 0 && count >= iterLimit {
				break
			}
			ok, err := it.Next()
			if err != nil {
				die("iterating: %v", err)
			}
			if !ok {
				break
			}
			inst := it.Value()
			_ = bar.Add(1)
			if iterVerbose {
				fmt.Fprintf(os.Stderr, "\n  index=%d shape=(%d,%d,%d) label=%v\n",
					inst.Index, inst.Image.Channels, inst.Image.Height, inst.Image.Width, inst.Label)
			}
			count++
		}
		_ = bar.Finish()

		green := color.New(color.FgGreen, color.Bold)
		fmt.Println()
		_, _ = green.Printf("done: %d instances\n", count)
	},
}

func init() {
	iterateCmd.Flags().StringVar(&iterImglist, "imglist", "", "optional label list file")
	iterateCmd.Flags().IntVar(&iterLabelWidth, "label-width", 1, "floats per label")
	iterateCmd.Flags().IntVar(&iterChannels, "channels", 3, "target channel count")
	iterateCmd.Flags().IntVar(&iterHeight, "height", 224, "target height")
	iterateCmd.Flags().IntVar(&iterWidth, "width", 224, "target width")
	iterateCmd.Flags().IntVar(&iterThreads, "threads", imgrec.AutoThreads, "preprocess threads (-1 = auto)")
	iterateCmd.Flags().IntVar(&iterNumParts, "num-parts", 1, "number of shards")
	iterateCmd.Flags().IntVar(&iterPartIndex, "part-index", 0, "this reader's shard index")
	iterateCmd.Flags().BoolVar(&iterShuffle, "shuffle", false, "shuffle within-chunk order")
	iterateCmd.Flags().Int32Var(&iterSeed, "seed", 0, "shuffle seed")
	iterateCmd.Flags().IntVar(&iterLimit, "limit", 0, "stop after N instances (0 = unlimited)")
	iterateCmd.Flags().BoolVar(&iterVerbose, "verbose", false, "verbose per-instance logging")
	rootCmd.AddCommand(iterateCmd)
}

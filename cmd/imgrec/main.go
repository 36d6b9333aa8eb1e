// Command imgrec inspects and iterates record-I/O image archives from
// the command line: a thin cobra/viper wrapper over the imgrec package,
// grounded on go/cli/mcap's cmd/main split (library never exits the
// process; only the cmd subpackage calls os.Exit).
package main

import "github.com/recordio/imgrec/cmd/imgrec/cmd"

func main() {
	cmd.Execute()
}

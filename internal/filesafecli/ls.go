package filesafecli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/text/width"
)

func newLsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <dir>",
		Short: "List dir, flagging orphaned .filesafe backups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			entries, err := afero.ReadDir(osFs, dir)
			if err != nil {
				return fail(cmd, err)
			}

			names := make([]string, 0, len(entries))
			col := 0
			for _, e := range entries {
				name := e.Name()
				names = append(names, name)
				if w := displayWidth(name); w > col {
					col = w
				}
			}
			sort.Strings(names)

			for _, name := range names {
				marker := ""
				if strings.HasSuffix(name, backupMarkerSuffix) {
					marker = "(orphaned backup — run `filesafe recover`)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", padDisplay(name, col+2), marker)
			}
			return nil
		},
	}

	return cmd
}

const backupMarkerSuffix = ".filesafe"

// displayWidth measures name in terminal columns, counting East Asian
// wide and fullwidth runes as two columns instead of one — a plain
// len(name) would misalign the marker column for any directory mixing
// ASCII and CJK filenames.
func displayWidth(name string) int {
	n := 0
	for _, r := range name {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// padDisplay right-pads name with spaces until it reaches cols display
// columns, honoring wide-rune width the same way displayWidth does.
func padDisplay(name string, cols int) string {
	pad := cols - displayWidth(name)
	if pad <= 0 {
		return name
	}
	return name + strings.Repeat(" ", pad)
}

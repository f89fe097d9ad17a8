package cli

import (
	"fmt"
	"io"
)

// printLine writes a line prefixed the way every git-sync-world status
// message is, per spec.md §6.
func printLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "git-sync-world: "+format+"\n", args...)
}

// printError writes a line prefixed as an error, per spec.md §6.
func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "git-sync-world: ERROR - "+format+"\n", args...)
}

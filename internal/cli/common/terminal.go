package common

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func IsInteractiveTerminal(command *cobra.Command) bool {
	return isTerminalReader(command.InOrStdin()) && isTerminalWriter(command.OutOrStdout())
}

func isTerminalReader(reader io.Reader) bool {
	file, ok := reader.(*os.File)
	return ok && file != nil && term.IsTerminal(int(file.Fd()))
}

func isTerminalWriter(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	return ok && file != nil && term.IsTerminal(int(file.Fd()))
}

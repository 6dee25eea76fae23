package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/crmarques/orgsync/config"
	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/internal/cli/common"
	"github.com/crmarques/orgsync/internal/cli/version"
	"github.com/crmarques/orgsync/orchestrator"
)

type Dependencies struct {
	NewRegistry common.RegistryFactory
	LookupEnv   config.LookupEnvFunc
	Confirm     orchestrator.ConfirmFunc
	HTTPClient  *http.Client
}

func (d Dependencies) commandDependencies() common.CommandDependencies {
	lookupEnv := d.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return common.CommandDependencies{
		NewRegistry: d.NewRegistry,
		LookupEnv:   lookupEnv,
		Confirm:     d.Confirm,
		HTTPClient:  d.HTTPClient,
		Version:     version.Version,
	}
}

// Execute runs the command line in args and prints the outcome status to
// stderr.
func Execute(ctx context.Context, deps Dependencies, args []string) error {
	root := NewRootCommand(deps)
	root.SetArgs(args)

	_, err := root.ExecuteContextC(ctx)
	if err != nil {
		writeExecutionErrorStatus(root.ErrOrStderr(), err)
		return err
	}
	return nil
}

func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}

	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) {
		return 1
	}

	switch typedErr.Category {
	case faults.ValidationError:
		return 2
	case faults.NotFoundError:
		return 3
	case faults.AuthError:
		return 4
	case faults.ConflictError:
		return 5
	case faults.TransportError:
		return 6
	case faults.ConnectionError:
		return 7
	case faults.CorruptStateError:
		return 8
	default:
		return 1
	}
}

func writeExecutionErrorStatus(w io.Writer, err error) {
	description := "command execution failed"
	if err != nil {
		description = fmt.Sprintf("%s: %s", description, strings.TrimSpace(err.Error()))
	}
	_, _ = fmt.Fprintf(w, "%s %s.\n", formatStatusLabel(w, "ERROR"), description)
}

func formatStatusLabel(w io.Writer, status string) string {
	label := fmt.Sprintf("[%s]", strings.TrimSpace(status))
	if !supportsANSIStatus(w) {
		return label
	}

	switch strings.TrimSpace(status) {
	case "OK":
		return "\x1b[1;32m" + label + "\x1b[0m"
	case "ERROR":
		return "\x1b[1;31m" + label + "\x1b[0m"
	default:
		return label
	}
}

func supportsANSIStatus(w io.Writer) bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}

	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return false
	}

	termName := strings.TrimSpace(strings.ToLower(os.Getenv("TERM")))
	return termName != "" && termName != "dumb"
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// GenerateCompletion generates a shell completion script for the command tree
// rooted at root.
//
// Parameters:
//   - out: The writer to output the completion script.
//   - root: The root command of the tree to complete.
//   - shell: The shell type ("bash", "zsh", "fish", "powershell").
//
// Returns:
//   - error: An error if the shell is not supported.
func GenerateCompletion(out io.Writer, root *cobra.Command, shell string) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(out, true)
	case "zsh":
		return root.GenZshCompletion(out)
	case "fish":
		return root.GenFishCompletion(out, true)
	case "powershell", "ps":
		return root.GenPowerShellCompletionWithDesc(out)
	default:
		return fmt.Errorf("unsupported shell: %s (accepted values: bash, zsh, fish, powershell)", shell)
	}
}

// CompletionShells lists the shells accepted by GenerateCompletion.
var CompletionShells = []string{"bash", "zsh", "fish", "powershell"}

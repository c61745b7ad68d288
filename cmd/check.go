package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbolis/surveyflow/survey"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file...]",
		Short: "Validate survey definition files",
		Long: `Parses each survey definition file and reports every structural
problem found, the same checks the upload page runs. Exits non-zero when any
file has problems.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}
}

var errCheckFailed = errors.New("some definitions have problems")

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := false
	for _, path := range args {
		problems, err := checkFile(path)
		if err != nil {
			fmt.Fprintf(out, "ERROR in %s: %v\n", path, err)
			failed = true
			continue
		}
		if len(problems) == 0 {
			fmt.Fprintf(out, "OK: %s\n", path)
			continue
		}
		failed = true
		fmt.Fprintf(out, "%s: %d problems\n", path, len(problems))
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}

	if failed {
		return errCheckFailed
	}
	return nil
}

func checkFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := survey.ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	return survey.Messages(survey.CheckDefinition(def)), nil
}

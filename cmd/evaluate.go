package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/report"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <learner> <answers.json|->",
	Short: "Evaluate a submission against the learner's exam",
	Long:  "Evaluate reads {\"respuestas\": [{\"pregunta_id\", \"respuesta\", \"tiempo_seg\"}]} from a file or stdin.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			body []byte
			err  error
		)
		if args[1] == "-" {
			body, err = io.ReadAll(os.Stdin)
		} else {
			body, err = os.ReadFile(args[1])
		}
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		res, err := a.Evaluations.Submit(cmd.Context(), args[0], body)
		if err != nil && (res == nil || !apperr.Is(err, apperr.KindPersistence)) {
			return err
		}
		width, _ := cmd.Flags().GetInt("width")
		fmt.Println(report.RenderProfile(a.Hierarchy, res.Profile, nil, width))
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning: profile was not stored:", apperr.MessageOf(err))
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().Int("width", report.DefaultWidth, "Output width")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/report"
)

var pathCmd = &cobra.Command{
	Use:   "path <learner>",
	Short: "Show or regenerate a learner's path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		var p *learnpath.LearningPath
		if regen, _ := cmd.Flags().GetBool("regenerate"); regen {
			p, err = a.Paths.Regenerate(cmd.Context(), args[0])
			if err != nil && p != nil && p.Fallback {
				fmt.Fprintln(os.Stderr, "notice:", apperr.MessageOf(err))
				err = nil
			}
		} else {
			p, err = a.Paths.Path(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		width, _ := cmd.Flags().GetInt("width")
		fmt.Println(report.RenderPath(p, width))
		return nil
	},
}

var pathCompleteCmd = &cobra.Command{
	Use:   "complete <learner> <level>",
	Short: "Mark a path level as completed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		level, err := a.Hierarchy.Parse(args[1])
		if err != nil {
			return err
		}
		p, err := a.Paths.CompleteLevel(cmd.Context(), args[0], level)
		if err != nil {
			return err
		}
		fmt.Printf("%s completed; progress %.2f%%\n", level, p.ProgressPercent)
		return nil
	},
}

func init() {
	pathCmd.Flags().Bool("regenerate", false, "Build a new path from the latest profile and materials")
	pathCmd.Flags().Int("width", report.DefaultWidth, "Output width")
	pathCmd.AddCommand(pathCompleteCmd)
}

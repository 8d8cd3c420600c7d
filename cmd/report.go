package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/rutealo/internal/apperr"
	"github.com/abhisek/rutealo/internal/learnpath"
	"github.com/abhisek/rutealo/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <learner>",
	Short: "Show a learner's mastery profile and path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		ctx := cmd.Context()
		profile, err := a.Evaluations.Profile(ctx, args[0])
		if err != nil {
			return err
		}
		var path *learnpath.LearningPath
		if p, err := a.Paths.Path(ctx, args[0]); err == nil {
			path = p
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}

		xlsx, _ := cmd.Flags().GetString("xlsx")
		if xlsx == "" {
			width, _ := cmd.Flags().GetInt("width")
			fmt.Println(report.RenderProfile(a.Hierarchy, profile, path, width))
			return nil
		}

		history, err := a.Evaluations.History(ctx, args[0], 50)
		if err != nil {
			return err
		}
		f, err := os.Create(xlsx)
		if err != nil {
			return err
		}
		wb := report.Workbook{Profile: profile, History: history, Path: path}
		if err := report.WriteWorkbook(f, a.Hierarchy, wb); err != nil {
			f.Close()
			return fmt.Errorf("write workbook: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Println("Wrote", xlsx)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("xlsx", "", "Write a spreadsheet report to this file instead")
	reportCmd.Flags().Int("width", report.DefaultWidth, "Output width")
}

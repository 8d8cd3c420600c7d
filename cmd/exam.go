package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rutealo/internal/evaluation"
)

var examCmd = &cobra.Command{
	Use:   "exam <learner>",
	Short: "Generate the diagnostic exam from classified materials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		var exam *evaluation.Exam
		if show, _ := cmd.Flags().GetBool("show"); show {
			exam, err = a.Evaluations.Exam(cmd.Context(), args[0])
		} else {
			exam, err = a.BuildExam(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		withKey, _ := cmd.Flags().GetBool("answers")
		printExam(exam, withKey)
		return nil
	},
}

func printExam(exam *evaluation.Exam, withKey bool) {
	fmt.Printf("Exam for %s (%s, generated %s)\n",
		exam.LearnerID, exam.Status, exam.GeneratedAt.Local().Format("2006-01-02 15:04"))
	fmt.Println(strings.Repeat("─", 72))
	for _, it := range exam.Items {
		fmt.Printf("%d. [%s] %s\n", it.ID, it.Level, it.Prompt)
		for _, opt := range it.Options {
			fmt.Printf("     %s\n", opt)
		}
		if withKey {
			fmt.Printf("     -> %s\n", it.CorrectOption)
		}
		fmt.Println()
	}
}

func init() {
	examCmd.Flags().Bool("show", false, "Show the stored exam instead of generating a new one")
	examCmd.Flags().Bool("answers", false, "Include the answer key")
}

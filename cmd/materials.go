package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/rutealo/internal/materials"
)

var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "Ingest, list and classify study materials",
}

var materialsIngestCmd = &cobra.Command{
	Use:   "ingest <learner> <file>",
	Short: "Store extracted text as a pending material",
	Long: "Ingest reads a JSON file of the form {\"filename\", \"unidades\": [{\"tipo\", \"texto\"}]}\n" +
		"or a plain text file, which is split into paragraphs at blank lines.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, units, err := readUnits(args[1])
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		m, err := a.Materials.Ingest(cmd.Context(), args[0], filename, units)
		if err != nil {
			return err
		}
		fmt.Printf("Stored %s (%s) with %d units.\n", m.Filename, m.ID, len(m.Units))
		return nil
	},
}

var materialsListCmd = &cobra.Command{
	Use:   "list <learner>",
	Short: "List a learner's materials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		mats, err := a.Materials.List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(mats) == 0 {
			fmt.Println("No materials found.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-16s  %5s  %s\n", "ID", "Uploaded", "Status", "Units", "File")
		fmt.Println(strings.Repeat("─", 100))
		for _, m := range mats {
			fmt.Printf("%-36s  %-19s  %-16s  %5d  %s\n",
				m.ID,
				m.UploadedAt.Local().Format("2006-01-02 15:04:05"),
				m.Status,
				len(m.Units),
				m.Filename,
			)
		}
		return nil
	},
}

var materialsClassifyCmd = &cobra.Command{
	Use:   "classify <learner>",
	Short: "Classify pending units by Bloom level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(cmd, a)

		sum, err := a.Materials.ClassifyPending(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Classified %d units in %d materials.\n", sum.Units, sum.Materials)
		for _, level := range a.Hierarchy.All() {
			if n := sum.ByLevel[string(level)]; n > 0 {
				fmt.Printf("  %-11s %d\n", level, n)
			}
		}
		return nil
	},
}

func readUnits(path string) (string, []materials.UnitInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var in struct {
			Filename string                `json:"filename"`
			Units    []materials.UnitInput `json:"unidades"`
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return "", nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if in.Filename == "" {
			in.Filename = filepath.Base(path)
		}
		return in.Filename, in.Units, nil
	}

	var units []materials.UnitInput
	for _, para := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n\n") {
		if text := strings.TrimSpace(para); text != "" {
			units = append(units, materials.UnitInput{Kind: materials.KindParagraph, Text: text})
		}
	}
	return filepath.Base(path), units, nil
}

func init() {
	materialsCmd.AddCommand(materialsIngestCmd)
	materialsCmd.AddCommand(materialsListCmd)
	materialsCmd.AddCommand(materialsClassifyCmd)
}

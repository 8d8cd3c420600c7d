package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"

	"github.com/abhisek/rutealo/internal/llm"
	"github.com/abhisek/rutealo/internal/store"
)

var (
	llmHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	llmCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	llmFailStyle   = llmCellStyle.Foreground(lipgloss.Color("#E06C75"))
	llmLabelStyle  = lipgloss.NewStyle().Bold(true).Width(10)
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the LLM call log",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := store.QueryOpts{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Purpose, _ = cmd.Flags().GetString("purpose")
		opts.Learner, _ = cmd.Flags().GetString("learner")
		if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
			opts.From = time.Now().Add(-since)
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		events, done, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer done()

		list, err := events.QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No LLM calls recorded.")
			return nil
		}
		fmt.Fprintln(out, eventTable(list))
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the captured request and response of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid event id %q: %w", args[0], err)
		}

		events, done, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer done()

		e, err := events.GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		writeEvent(cmd.OutOrStdout(), e)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per purpose and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, done, err := openEventLog(cmd)
		if err != nil {
			return err
		}
		defer done()

		ctx := cmd.Context()
		byPurpose, err := events.LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded.")
			return nil
		}
		byModel, err := events.LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		fmt.Fprintln(out, purposeTable(byPurpose))
		fmt.Fprintln(out)
		fmt.Fprintln(out, costTable(byModel))
		return nil
	},
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return llmHeaderStyle
			}
			return llmCellStyle
		})
}

func eventTable(list []store.LLMRequestEventRecord) string {
	t := newTable("ID", "Time", "Learner", "Purpose", "Model", "In", "Out", "Ms", "OK")
	failed := make(map[int]bool)
	for i, e := range list {
		ok := "yes"
		if !e.Success {
			ok = "no"
			failed[i] = true
		}
		t.Row(
			strconv.FormatInt(e.ID, 10),
			e.Timestamp.Local().Format(time.DateTime),
			truncate(e.LearnerID, 12),
			e.Purpose,
			truncate(e.Model, 28),
			strconv.Itoa(e.InputTokens),
			strconv.Itoa(e.OutputTokens),
			strconv.FormatInt(e.LatencyMs, 10),
			ok,
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return llmHeaderStyle
		case failed[row]:
			return llmFailStyle
		}
		return llmCellStyle
	})
	return t.String()
}

func purposeTable(stats []store.LLMUsageStats) string {
	t := newTable("Purpose", "Calls", "Input", "Output", "Total", "Avg ms")
	var calls, in, outTok int
	for _, st := range stats {
		t.Row(st.Purpose, strconv.Itoa(st.Calls), strconv.Itoa(st.InputTokens),
			strconv.Itoa(st.OutputTokens), strconv.Itoa(st.InputTokens+st.OutputTokens),
			strconv.FormatInt(st.AvgLatencyMs, 10))
		calls += st.Calls
		in += st.InputTokens
		outTok += st.OutputTokens
	}
	t.Row("total", strconv.Itoa(calls), strconv.Itoa(in), strconv.Itoa(outTok), strconv.Itoa(in+outTok), "")
	return t.String()
}

// costTable prices each model from the built-in rate card. Models without
// a rate show "?" and mark the total as partial.
func costTable(usage []store.LLMModelUsage) string {
	t := newTable("Model", "Calls", "Input", "Output", "Cost (USD)")
	var total float64
	var unpriced []string
	for _, mu := range usage {
		cost := "?"
		if rate := llm.LookupCost(mu.Model); rate != nil {
			c := rate.Cost(mu.InputTokens, mu.OutputTokens)
			total += c
			cost = formatCost(c)
		} else {
			unpriced = append(unpriced, mu.Model)
		}
		t.Row(truncate(mu.Model, 32), strconv.Itoa(mu.Calls), strconv.Itoa(mu.InputTokens),
			strconv.Itoa(mu.OutputTokens), cost)
	}
	label := "total"
	if len(unpriced) > 0 {
		label = "total (partial)"
	}
	t.Row(label, "", "", "", formatCost(total))

	s := t.String()
	if len(unpriced) > 0 {
		s += "\nNo pricing for: " + strings.Join(unpriced, ", ")
	}
	return s
}

func writeEvent(w io.Writer, e *store.LLMRequestEventRecord) {
	field := func(label, value string) {
		fmt.Fprintln(w, llmLabelStyle.Render(label)+value)
	}
	field("ID", strconv.FormatInt(e.ID, 10))
	field("Time", e.Timestamp.Local().Format(time.DateTime))
	field("Provider", e.Provider)
	field("Model", e.Model)
	field("Purpose", e.Purpose)
	if e.LearnerID != "" {
		field("Learner", e.LearnerID)
	}
	field("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens))
	field("Latency", fmt.Sprintf("%dms", e.LatencyMs))
	field("Success", strconv.FormatBool(e.Success))
	if e.ErrorMessage != "" {
		field("Error", e.ErrorMessage)
	}

	for _, part := range []struct{ title, body string }{
		{"Request", e.RequestBody},
		{"Response", e.ResponseBody},
	} {
		fmt.Fprintln(w)
		fmt.Fprintln(w, llmHeaderStyle.Render(part.title))
		if part.body == "" {
			fmt.Fprintln(w, "(not captured)")
			continue
		}
		fmt.Fprintln(w, prettyJSON(part.body))
	}
}

func prettyJSON(s string) string {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s
	}
	return string(b)
}

// openEventLog opens the SQLite event database. LLM calls are always logged
// locally, whatever the document backend.
func openEventLog(cmd *cobra.Command) (*store.EventLog, func(), error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	b, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return b.Events(), func() { b.Close(cmd.Context()) }, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (classify, diagnostic-exam, path-block)")
	llmListCmd.Flags().StringP("learner", "l", "", "Filter by learner")
	llmListCmd.Flags().Duration("since", 0, "Only calls newer than this (e.g. 24h)")
	llmListCmd.Flags().Bool("json", false, "Print records as JSON")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}

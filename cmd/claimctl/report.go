package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"claim-pipeline-be/internal/entity"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusColor(status string) *color.Color {
	switch status {
	case string(entity.EventCompleted), string(entity.DecisionApproved):
		return color.New(color.FgGreen)
	case string(entity.EventFailed), string(entity.DecisionRejected), string(entity.DecisionOrchestrationFailed):
		return color.New(color.FgRed)
	case string(entity.EventProcessing):
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgYellow)
	}
}

func printEvent(w io.Writer, ev entity.Event) {
	status := statusColor(string(ev.Status)).Sprintf("%-10s", ev.Status)
	fmt.Fprintf(w, "%s [%3d] %-32s %s %s\n", ev.Timestamp.Format("15:04:05"), ev.Seq, ev.AgentName, status, ev.Message)
}

// printReport writes the stage table and the decision summary.
func printReport(w io.Writer, claim entity.ClaimRecord, session *entity.Session) {
	fmt.Fprintln(w)
	color.New(color.Bold).Fprintf(w, "Claim %s (%s)\n", claim.ClaimID, claim.PatientName)
	fmt.Fprintf(w, "Session %s: %s\n\n", session.SessionID, session.Status)

	stages := table.NewWriter()
	stages.SetOutputMirror(w)
	stages.SetStyle(table.StyleLight)
	stages.AppendHeader(table.Row{"Stage", "Status", "Elapsed", "Failure"})
	for _, r := range session.StageResults {
		stages.AppendRow(table.Row{
			r.Stage,
			statusColor(string(r.Status)).Sprint(r.Status),
			r.Elapsed.Round(time.Millisecond),
			string(r.Failure),
		})
	}
	stages.Render()

	d := session.Decision
	if d == nil {
		fmt.Fprintln(w, "\nNo decision recorded.")
		return
	}

	fmt.Fprintln(w)
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.AppendRows([]table.Row{
		{"Decision", statusColor(string(d.Decision)).Sprint(d.Decision)},
		{"Approved amount", d.ApprovedAmount},
		{"Remaining balance", d.RemainingBalance},
		{"Policy utilization", fmt.Sprintf("%.1f%%", d.PolicyUtilization)},
		{"Fraud risk", d.FraudRiskLevel},
		{"Coverage risk", d.CoverageRiskLevel},
		{"Coverage assessment", d.CoverageAssessment},
		{"Balance status", d.BalanceStatus},
		{"Exclusions", d.ExclusionsApplicable},
		{"Fraud indicators", strings.Join(d.FraudIndicators, "; ")},
	})
	summary.Render()

	if d.Rationale != "" {
		fmt.Fprintf(w, "\n%s\n", d.Rationale)
	}
}

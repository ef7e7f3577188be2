package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reportStatus string
	reportAction string
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Work the moderation queue",
	Long:  "List open reports and resolve or dismiss them (moderator token required)",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports in the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listReports()
	},
}

var reportsResolveCmd = &cobra.Command{
	Use:   "resolve <report-id>",
	Short: "Close a report with action taken",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return closeReport(args[0], "resolve")
	},
}

var reportsDismissCmd = &cobra.Command{
	Use:   "dismiss <report-id>",
	Short: "Close a report without action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return closeReport(args[0], "dismiss")
	},
}

func init() {
	reportsListCmd.Flags().StringVar(&reportStatus, "status", "", "Filter by status (pending, reviewing, resolved, dismissed)")
	reportsResolveCmd.Flags().StringVar(&reportAction, "action", "", "Note describing the action taken")
	reportsDismissCmd.Flags().StringVar(&reportAction, "action", "", "Note describing why the report was dismissed")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsResolveCmd)
	reportsCmd.AddCommand(reportsDismissCmd)
}

func listReports() error {
	path := "/api/v1/moderation/reports"
	if reportStatus != "" {
		path += "?status=" + reportStatus
	}
	body, err := apiRequest("GET", path, nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var response struct {
		Reports []struct {
			ID         string `json:"id"`
			TargetType string `json:"target_type"`
			TargetID   string `json:"target_id"`
			Reason     string `json:"reason"`
			Status     string `json:"status"`
			CreatedAt  string `json:"created_at"`
			Reporter   struct {
				Username string `json:"username"`
			} `json:"reporter"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Reports) == 0 {
		fmt.Println("The queue is empty.")
		return nil
	}

	for _, report := range response.Reports {
		fmt.Printf("%s  [%s] %s %s\n", report.ID, report.Status, report.TargetType, report.TargetID)
		fmt.Printf("  reason: %s, reported by @%s at %s\n", report.Reason, report.Reporter.Username, report.CreatedAt)
	}
	fmt.Printf("\n%d report(s)\n", len(response.Reports))

	return nil
}

func closeReport(reportID, verb string) error {
	payload := map[string]string{}
	if reportAction != "" {
		payload["action_taken"] = reportAction
	}

	body, err := apiRequest("POST", fmt.Sprintf("/api/v1/moderation/reports/%s/%s", reportID, verb), payload)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var report struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	fmt.Printf("Report %s is now %s\n", report.ID, report.Status)

	return nil
}

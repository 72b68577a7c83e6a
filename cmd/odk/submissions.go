package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	central "github.com/sofatutor/go-odk-central"
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Manage submissions",
	Long:  `Read, create and review submissions to a form.`,
}

var submissionsListCmd = &cobra.Command{
	Use:   "list <form-id>",
	Short: "List the submissions to a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		submissions, err := client.Submissions.List(cmd.Context(), args[0], 0)
		if err != nil {
			return err
		}
		jsonOut, _ := cmd.Flags().GetBool("json")
		if jsonOut {
			return printJSON(submissions)
		}
		fmt.Printf("%-45s  %-10s  %-20s\n", "Instance ID", "Review", "Created")
		for _, s := range submissions {
			review := s.ReviewState
			if review == "" {
				review = "-"
			}
			fmt.Printf("%-45s  %-10s  %-20s\n", s.InstanceID, review, s.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var submissionsGetCmd = &cobra.Command{
	Use:   "get <form-id> <instance-id>",
	Short: "Show one submission",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		submission, err := client.Submissions.Get(cmd.Context(), args[1], args[0], 0)
		if err != nil {
			return err
		}
		return printJSON(submission)
	},
}

var submissionsCreateCmd = &cobra.Command{
	Use:   "create <form-id> <submission.xml>",
	Short: "Submit a submission XML file to a form",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		xml, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		deviceID, _ := cmd.Flags().GetString("device-id")
		submission, err := client.Submissions.Create(cmd.Context(), xml, args[0], &central.SubmissionCreateOptions{
			DeviceID: deviceID,
		})
		if err != nil {
			return err
		}
		return printJSON(submission)
	},
}

var submissionsReviewCmd = &cobra.Command{
	Use:   "review <form-id> <instance-id> <state>",
	Short: "Set a submission's review state",
	Long:  `Set a submission's review state to approved, hasIssues, rejected or edited.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		comment, _ := cmd.Flags().GetString("comment")
		submission, err := client.Submissions.Review(cmd.Context(), args[1], args[2], &central.SubmissionUpdateOptions{
			FormID:  args[0],
			Comment: comment,
		})
		if err != nil {
			return err
		}
		return printJSON(submission)
	},
}

var submissionsCommentCmd = &cobra.Command{
	Use:   "comment <form-id> <instance-id> <body>",
	Short: "Comment on a submission",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		comment, err := client.Submissions.Comment(cmd.Context(), args[1], args[2], args[0], 0)
		if err != nil {
			return err
		}
		return printJSON(comment)
	},
}

var submissionsExportCmd = &cobra.Command{
	Use:   "export <form-id>",
	Short: "Read submission data rows via OData",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		opts := &central.TableOptions{FormID: args[0]}
		opts.TableName, _ = cmd.Flags().GetString("table")
		opts.Skip, _ = cmd.Flags().GetInt("skip")
		opts.Top, _ = cmd.Flags().GetInt("top")
		opts.Count, _ = cmd.Flags().GetBool("count")
		opts.Filter, _ = cmd.Flags().GetString("filter")
		opts.Select, _ = cmd.Flags().GetString("select")
		opts.Expand, _ = cmd.Flags().GetString("expand")
		table, err := client.Submissions.Table(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return printJSON(table)
	},
}

func init() {
	submissionsListCmd.Flags().Bool("json", false, "Output as JSON")
	submissionsCreateCmd.Flags().String("device-id", "", "Device id to record against the submission")
	submissionsReviewCmd.Flags().String("comment", "", "Comment to record alongside the review")
	submissionsExportCmd.Flags().String("table", "", "Table name (default Submissions)")
	submissionsExportCmd.Flags().Int("skip", 0, "Skip the first n rows")
	submissionsExportCmd.Flags().Int("top", 0, "Return at most n rows")
	submissionsExportCmd.Flags().Bool("count", false, "Include the total row count")
	submissionsExportCmd.Flags().String("filter", "", "OData filter on system fields")
	submissionsExportCmd.Flags().String("select", "", "Fields to return")
	submissionsExportCmd.Flags().String("expand", "", "Repetitions to expand, e.g. *")

	submissionsCmd.AddCommand(submissionsListCmd)
	submissionsCmd.AddCommand(submissionsGetCmd)
	submissionsCmd.AddCommand(submissionsCreateCmd)
	submissionsCmd.AddCommand(submissionsReviewCmd)
	submissionsCmd.AddCommand(submissionsCommentCmd)
	submissionsCmd.AddCommand(submissionsExportCmd)
}

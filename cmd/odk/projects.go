package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects",
	Long:  `Read project metadata from the server.`,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		projects, err := client.Projects.List(cmd.Context())
		if err != nil {
			return err
		}
		jsonOut, _ := cmd.Flags().GetBool("json")
		if jsonOut {
			return printJSON(projects)
		}
		fmt.Printf("%-6s  %-30s  %-6s  %-20s\n", "ID", "Name", "Forms", "Last Submission")
		for _, p := range projects {
			last := "-"
			if p.LastSubmission != nil {
				last = p.LastSubmission.Format("2006-01-02 15:04")
			}
			fmt.Printf("%-6d  %-30s  %-6d  %-20s\n", p.ID, p.Name, p.Forms, last)
		}
		return nil
	},
}

var projectsGetCmd = &cobra.Command{
	Use:   "get [project-id]",
	Short: "Show one project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		id := 0
		if len(args) == 1 {
			id, err = strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
		}
		project, err := client.Projects.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(project)
	},
}

func init() {
	projectsListCmd.Flags().Bool("json", false, "Output as JSON")
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsGetCmd)
}

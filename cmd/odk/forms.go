package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	central "github.com/sofatutor/go-odk-central"
)

var formsCmd = &cobra.Command{
	Use:   "forms",
	Short: "Manage forms",
	Long:  `Read, create and update forms in a project.`,
}

var formsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the forms in a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		forms, err := client.Forms.List(cmd.Context(), 0)
		if err != nil {
			return err
		}
		jsonOut, _ := cmd.Flags().GetBool("json")
		if jsonOut {
			return printJSON(forms)
		}
		fmt.Printf("%-30s  %-30s  %-12s  %-8s\n", "Form ID", "Name", "Version", "State")
		for _, f := range forms {
			fmt.Printf("%-30s  %-30s  %-12s  %-8s\n", f.XMLFormID, f.Name, f.Version, f.State)
		}
		return nil
	},
}

var formsGetCmd = &cobra.Command{
	Use:   "get <form-id>",
	Short: "Show one form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		form, err := client.Forms.Get(cmd.Context(), args[0], 0)
		if err != nil {
			return err
		}
		return printJSON(form)
	},
}

var formsCreateCmd = &cobra.Command{
	Use:   "create <definition.xml>",
	Short: "Create a form from a definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		definition, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		draft, _ := cmd.Flags().GetBool("draft")
		ignoreWarnings, _ := cmd.Flags().GetBool("ignore-warnings")
		form, err := client.Forms.Create(cmd.Context(), definition, &central.FormCreateOptions{
			Draft:          draft,
			IgnoreWarnings: ignoreWarnings,
		})
		if err != nil {
			return err
		}
		return printJSON(form)
	},
}

var formsUpdateCmd = &cobra.Command{
	Use:   "update <form-id>",
	Short: "Publish a new version of a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		opts := &central.FormUpdateOptions{}
		if path, _ := cmd.Flags().GetString("definition"); path != "" {
			opts.Definition, err = os.ReadFile(path)
			if err != nil {
				return err
			}
		}
		opts.Version, _ = cmd.Flags().GetString("form-version")
		if err := client.Forms.Update(cmd.Context(), args[0], opts); err != nil {
			return err
		}
		fmt.Printf("Published new version of %s\n", args[0])
		return nil
	},
}

func init() {
	formsListCmd.Flags().Bool("json", false, "Output as JSON")
	formsCreateCmd.Flags().Bool("draft", false, "Leave the new form unpublished")
	formsCreateCmd.Flags().Bool("ignore-warnings", false, "Create the form despite XLSForm warnings")
	formsUpdateCmd.Flags().String("definition", "", "Path to the new definition XML")
	formsUpdateCmd.Flags().String("form-version", "", "Version name when no definition is given")

	formsCmd.AddCommand(formsListCmd)
	formsCmd.AddCommand(formsGetCmd)
	formsCmd.AddCommand(formsCreateCmd)
	formsCmd.AddCommand(formsUpdateCmd)
}

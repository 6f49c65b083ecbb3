package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/OpenMined/syft-rds/pkg/types"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Publish and inspect datasets",
}

var datasetsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish a dataset from local mock and private trees",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		mock, _ := cmd.Flags().GetString("mock")
		private, _ := cmd.Flags().GetString("private")
		summary, _ := cmd.Flags().GetString("summary")
		readme, _ := cmd.Flags().GetString("readme")

		ds, err := c.Datasets.Create(context.Background(), &types.DatasetCreate{
			Name:        name,
			MockPath:    mock,
			PrivatePath: private,
			Summary:     summary,
			ReadmePath:  readme,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Published dataset %s (%s)\n", ds.Name, ds.UID)
		fmt.Printf("  Mock: %s\n", ds.MockURL)
		return nil
	},
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets on the host datasite",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		datasets, err := c.Datasets.GetAll(context.Background(), nil)
		if err != nil {
			return err
		}
		fmt.Printf("%-36s  %-24s  %s\n", "UID", "NAME", "SUMMARY")
		for _, ds := range datasets {
			fmt.Printf("%-36s  %-24s  %s\n", ds.UID, ds.Name, ds.Summary)
		}
		return nil
	},
}

var datasetsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show one dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ds, err := c.Datasets.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Name:    %s\n", ds.Name)
		fmt.Printf("UID:     %s\n", ds.UID)
		fmt.Printf("Summary: %s\n", ds.Summary)
		fmt.Printf("Mock:    %s\n", ds.MockURL)
		if ds.PrivateURL != "" {
			fmt.Printf("Private: %s\n", ds.PrivateURL)
		}
		for col, typ := range ds.Schema {
			fmt.Printf("  column %s: %s\n", col, typ)
		}
		return nil
	},
}

var datasetsDeleteCmd = &cobra.Command{
	Use:   "delete <uid>",
	Short: "Delete a dataset and both data trees",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid dataset uid %q: %v", args[0], err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		deleted, err := c.Datasets.Delete(context.Background(), uid)
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Printf("Dataset %s not found\n", uid)
			return nil
		}
		fmt.Printf("Deleted dataset %s\n", uid)
		return nil
	},
}

func init() {
	datasetsCreateCmd.Flags().String("name", "", "dataset name, unique per datasite")
	datasetsCreateCmd.Flags().String("mock", "", "local path of the public mock data")
	datasetsCreateCmd.Flags().String("private", "", "local path of the private data")
	datasetsCreateCmd.Flags().String("summary", "", "one-line dataset summary")
	datasetsCreateCmd.Flags().String("readme", "", "readme file copied into the mock tree")
	datasetsCreateCmd.MarkFlagRequired("name")
	datasetsCreateCmd.MarkFlagRequired("mock")
	datasetsCreateCmd.MarkFlagRequired("private")

	datasetsCmd.AddCommand(datasetsCreateCmd)
	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsGetCmd)
	datasetsCmd.AddCommand(datasetsDeleteCmd)
}

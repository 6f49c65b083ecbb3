package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/OpenMined/syft-rds/pkg/types"
)

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "Register and inspect execution runtimes",
}

var runtimesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a runtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		kindStr, _ := cmd.Flags().GetString("kind")
		cmdArgs, _ := cmd.Flags().GetStringSlice("cmd")
		image, _ := cmd.Flags().GetString("image")
		dockerfile, _ := cmd.Flags().GetString("dockerfile")
		useUV, _ := cmd.Flags().GetBool("use-uv")

		kind, err := types.ParseRuntimeKind(kindStr)
		if err != nil {
			return err
		}
		create := &types.RuntimeCreate{Name: name, Kind: kind, Cmd: cmdArgs}
		switch kind {
		case types.RuntimeKindPython:
			create.Config.Python = &types.PythonRuntimeConfig{UseUV: useUV}
		case types.RuntimeKindDocker:
			cfg := &types.DockerRuntimeConfig{ImageName: image}
			if dockerfile != "" {
				content, err := os.ReadFile(dockerfile)
				if err != nil {
					return fmt.Errorf("failed to read dockerfile: %v", err)
				}
				cfg.DockerfileContent = string(content)
			}
			create.Config.Docker = cfg
		}

		rt, err := c.Runtimes.Create(context.Background(), create)
		if err != nil {
			return err
		}
		fmt.Printf("Registered runtime %s (%s, %s)\n", rt.Name, rt.UID, rt.Kind)
		return nil
	},
}

var runtimesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered runtimes",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		runtimes, err := c.Runtimes.GetAll(context.Background(), nil)
		if err != nil {
			return err
		}
		fmt.Printf("%-36s  %-24s  %-12s  %s\n", "UID", "NAME", "KIND", "CMD")
		for _, rt := range runtimes {
			fmt.Printf("%-36s  %-24s  %-12s  %s\n", rt.UID, rt.Name, rt.Kind, rt.Interpreter())
		}
		return nil
	},
}

var runtimesDeleteCmd = &cobra.Command{
	Use:   "delete <uid>",
	Short: "Delete an unreferenced runtime",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid runtime uid %q: %v", args[0], err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		deleted, err := c.Runtimes.Delete(context.Background(), uid)
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Printf("Runtime %s not found\n", uid)
			return nil
		}
		fmt.Printf("Deleted runtime %s\n", uid)
		return nil
	},
}

func init() {
	runtimesCreateCmd.Flags().String("name", "", "runtime name (derived from config when empty)")
	runtimesCreateCmd.Flags().String("kind", "python", "runtime kind: python or docker")
	runtimesCreateCmd.Flags().StringSlice("cmd", nil, "interpreter argv prefix")
	runtimesCreateCmd.Flags().String("image", "", "docker image name")
	runtimesCreateCmd.Flags().String("dockerfile", "", "dockerfile built when the image is missing")
	runtimesCreateCmd.Flags().Bool("use-uv", false, "run python code through uv when a pyproject.toml is present")

	runtimesCmd.AddCommand(runtimesCreateCmd)
	runtimesCmd.AddCommand(runtimesListCmd)
	runtimesCmd.AddCommand(runtimesDeleteCmd)
}

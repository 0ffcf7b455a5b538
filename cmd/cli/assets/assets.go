package assets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/packrat-app/packrat/cmd/cli/auth"
	"github.com/packrat-app/packrat/cmd/cli/output"
	"github.com/packrat-app/packrat/internal/attach"
	"github.com/packrat-app/packrat/internal/client"
	"github.com/packrat-app/packrat/internal/form"
	"github.com/packrat-app/packrat/internal/models"
)

// ==========================
// Init Assets
// ==========================
func InitAssets(rootCmd *cobra.Command) {

	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage assets",
	}

	assetsCmd.AddCommand(
		listAssetsCmd(),
		showAssetCmd(),
		createAssetCmd(),
		editAssetCmd(),
		deleteAssetCmd(),
		historyCmd(),
	)

	rootCmd.AddCommand(assetsCmd)
}

// requireSession restores the saved session and returns an authenticated
// client, or an error telling the user to log in.
func requireSession(cmd *cobra.Command) (*client.Client, error) {
	m, c := auth.NewSession()
	m.Restore(cmd.Context())
	if !m.Current().IsAuthenticated {
		return nil, fmt.Errorf("please login first")
	}
	return c, nil
}

func renderAssetTable(assets []models.Asset) {
	if len(assets) == 0 {
		fmt.Println("No assets found")
		return
	}
	rows := make([][]interface{}, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, []interface{}{
			a.ID, a.Name, output.OrNA(a.Location), len(a.Attachments), a.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	output.RenderTable([]string{"ID", "Name", "Location", "Photos", "Created"}, rows)
}

func renderAssetDetail(a *models.Asset) {
	fmt.Println("Name:        " + a.Name)
	fmt.Println("Description: " + a.Description)
	fmt.Println("Location:    " + output.OrNA(a.Location))
	fmt.Println("Created:     " + a.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if a.UpdatedAt != nil {
		fmt.Println("Updated:     " + a.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if len(a.Attachments) > 0 {
		fmt.Printf("Attachments (%d):\n", len(a.Attachments))
		for i, uri := range a.Attachments {
			fmt.Printf("  [%d] %s\n", i, uri)
		}
	}
	fmt.Println("ID:          " + a.ID)
}

// ==========================
// LIST
// ==========================
func listAssetsCmd() *cobra.Command {
	var watchFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(cmd)
			if err != nil {
				return err
			}

			if !watchFlag {
				assets, err := c.ListAssets(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to fetch assets: %w", err)
				}
				renderAssetTable(assets)
				return nil
			}

			// Live view: each emission is the full current list. Ctrl-C
			// cancels the context and ends the subscription.
			ch, err := c.WatchCollection(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to watch assets: %w", err)
			}
			for assets := range ch {
				fmt.Print("\033[H\033[2J")
				renderAssetTable(assets)
				fmt.Println("\nWatching for changes... (Ctrl-C to stop)")
			}
			if cmd.Context().Err() == nil {
				// Closed by the server, not by Ctrl-C.
				fmt.Println("Stream ended; run again to reconnect.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watchFlag, "watch", false, "keep the list updated as assets change")

	return cmd
}

// ==========================
// SHOW
// ==========================
func showAssetCmd() *cobra.Command {
	var watchFlag bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(cmd)
			if err != nil {
				return err
			}

			if !watchFlag {
				asset, err := c.GetAsset(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to fetch asset: %w", err)
				}
				if asset == nil {
					fmt.Println("Asset not found")
					return nil
				}
				renderAssetDetail(asset)
				return nil
			}

			ch, err := c.WatchDocument(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to watch asset: %w", err)
			}
			for update := range ch {
				fmt.Print("\033[H\033[2J")
				if update.Asset == nil {
					// Deleted (or never existed): the not-found state.
					fmt.Println("Asset not found")
				} else {
					renderAssetDetail(update.Asset)
				}
				fmt.Println("\nWatching for changes... (Ctrl-C to stop)")
			}
			if cmd.Context().Err() == nil {
				fmt.Println("Stream ended; run again to reconnect.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watchFlag, "watch", false, "keep the view updated as the asset changes")

	return cmd
}

// printFieldErrors surfaces the form's field-level validation messages.
func printFieldErrors(fields map[string]string) {
	for _, f := range []string{"name", "description", "location"} {
		if msg, ok := fields[f]; ok {
			fmt.Printf("  %s: %s\n", f, msg)
		}
	}
}

// ==========================
// CREATE
// ==========================
func createAssetCmd() *cobra.Command {
	var name, description, location string
	var attachments []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(cmd)
			if err != nil {
				return err
			}

			uris, err := attach.Resolve(attachments...)
			if err != nil {
				return err
			}

			f := form.NewCreate(c)
			f.SetName(name)
			f.SetDescription(description)
			f.SetLocation(location)
			f.AddAttachments(uris...)

			id, err := f.Submit(cmd.Context())
			if errors.Is(err, form.ErrValidation) {
				fmt.Println("Validation failed:")
				printFieldErrors(f.FieldErrors())
				return fmt.Errorf("asset not saved")
			}
			if err != nil {
				return fmt.Errorf("failed to create asset: %w", err)
			}

			fmt.Println("Asset created:", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "asset name (required)")
	cmd.Flags().StringVar(&description, "description", "", "asset description (required)")
	cmd.Flags().StringVar(&location, "location", "", "asset location")
	cmd.Flags().StringArrayVar(&attachments, "attach", nil, "photo path or URI (repeatable)")

	return cmd
}

// ==========================
// EDIT
// ==========================
func editAssetCmd() *cobra.Command {
	var name, description, location string
	var addAttachments []string
	var removeAttachments []int

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit an asset",
		Long: `Edit an asset. Only the flags you pass change; everything else keeps
its stored value. Attachment removals are applied before additions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(cmd)
			if err != nil {
				return err
			}

			// One-shot read to populate the form; the edit screen does not
			// hold a live subscription.
			asset, err := c.GetAsset(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch asset: %w", err)
			}
			if asset == nil {
				fmt.Println("Asset not found")
				return nil
			}

			f := form.NewEdit(c, asset)
			if cmd.Flags().Changed("name") {
				f.SetName(name)
			}
			if cmd.Flags().Changed("description") {
				f.SetDescription(description)
			}
			if cmd.Flags().Changed("location") {
				f.SetLocation(location)
			}

			// Remove from highest index down so earlier removals do not
			// shift the later ones.
			sorted := append([]int{}, removeAttachments...)
			sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
			for _, idx := range sorted {
				if err := f.RemoveAttachment(idx); err != nil {
					return err
				}
			}

			uris, err := attach.Resolve(addAttachments...)
			if err != nil {
				return err
			}
			f.AddAttachments(uris...)

			_, err = f.Submit(cmd.Context())
			if errors.Is(err, form.ErrNotDirty) {
				fmt.Println("Nothing to save.")
				return nil
			}
			if errors.Is(err, form.ErrValidation) {
				fmt.Println("Validation failed:")
				printFieldErrors(f.FieldErrors())
				return fmt.Errorf("asset not saved")
			}
			if err != nil {
				return fmt.Errorf("failed to update asset: %w", err)
			}

			fmt.Println("Asset updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "asset name")
	cmd.Flags().StringVar(&description, "description", "", "asset description")
	cmd.Flags().StringVar(&location, "location", "", "asset location")
	cmd.Flags().StringArrayVar(&addAttachments, "add-attachment", nil, "photo path or URI to append (repeatable)")
	cmd.Flags().IntSliceVar(&removeAttachments, "remove-attachment", nil, "attachment index to remove (repeatable)")

	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteAssetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(cmd)
			if err != nil {
				return err
			}

			if !yes {
				fmt.Print("Delete this asset? This cannot be undone. [y/N]: ")
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "y" && answer != "yes" {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			if err := c.DeleteAsset(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete asset: %w", err)
			}

			fmt.Println("Asset deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")

	return cmd
}

// ==========================
// HISTORY
// ==========================
func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent asset changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := requireSession(cmd)
			if err != nil {
				return err
			}

			entries, err := c.ListAudit(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("No history")
				return nil
			}

			rows := make([][]interface{}, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []interface{}{
					e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Action, e.AssetID, e.Details,
				})
			}
			output.RenderTable([]string{"When", "Action", "Asset", "Details"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "number of entries to show")

	return cmd
}

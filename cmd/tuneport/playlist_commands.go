package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tuneport/internal/api"
	"tuneport/internal/catalog"
)

func newPlaylistsCommand(ctx *commandContext) *cobra.Command {
	playlistsCmd := &cobra.Command{
		Use:   "playlists",
		Short: "List and create catalog playlists",
	}
	playlistsCmd.AddCommand(newPlaylistsListCommand(ctx))
	playlistsCmd.AddCommand(newPlaylistsCreateCommand(ctx))
	return playlistsCmd
}

func newPlaylistsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the account's playlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				playlists, err := client.Playlists(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.PlaylistListResponse{Playlists: playlists})
				}
				out := cmd.OutOrStdout()
				if len(playlists) == 0 {
					fmt.Fprintln(out, "No playlists")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Name", "Owner", "Public", "Tracks", "Default"},
					buildPlaylistRows(playlists, cfg.Catalog.DefaultPlaylistID),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprint(out, table)
				return nil
			})
		},
	}
}

func buildPlaylistRows(playlists []catalog.Playlist, defaultID string) [][]string {
	rows := make([][]string, 0, len(playlists))
	for _, p := range playlists {
		def := ""
		if defaultID != "" && p.ID == defaultID {
			def = "*"
		}
		rows = append(rows, []string{p.ID, p.Name, p.Owner, yesNo(p.Public), strconv.Itoa(p.Tracks), def})
	}
	return rows
}

func newPlaylistsCreateCommand(ctx *commandContext) *cobra.Command {
	var req api.CreatePlaylistRequest

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = strings.TrimSpace(args[0])
			return ctx.withClient(func(client *api.Client) error {
				playlist, err := client.CreatePlaylist(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, playlist)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created playlist %q (%s)\n", playlist.Name, playlist.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Description, "description", "", "Playlist description")
	cmd.Flags().BoolVar(&req.Public, "public", false, "Make the playlist public")
	return cmd
}

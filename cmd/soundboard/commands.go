package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krywicki/discord-sounboard-bot/internal/app"
	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import every MP3 and FLAC file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		im := importer.New(e.catalog, e.log)
		im.Workers = e.cfg.PoolSize
		res, err := im.ImportDir(cmd.Context(), args[0], authorFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d, skipped %d, failed %d\n", res.Added, res.Skipped, res.Failed)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add a single clip",
	Long:  `Add a clip. Without --name the title tag or file name is used.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		name, _ := cmd.Flags().GetString("name")
		tags, _ := cmd.Flags().GetString("tags")

		var rec *domain.AudioRecord
		if name == "" {
			rec, err = importer.New(e.catalog, e.log).ImportFile(cmd.Context(), args[0], authorFromFlags(cmd))
			if err == nil && tags != "" {
				rec, err = e.catalog.Retag(cmd.Context(), domain.ByID(rec.ID), tags)
			}
		} else {
			rec, err = e.catalog.AddClip(cmd.Context(), app.AddClipRequest{
				SourcePath: args[0],
				Name:       name,
				Tags:       tags,
				Author:     authorFromFlags(cmd),
			})
		}
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <key>",
	Short: "Remove a clip and its audio file",
	Long:  `Remove a clip. key is id:<n>, name:<s>, path:<p>, a bare id or a bare name.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := domain.ParseUniqueKey(args[0])
		if err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		rec, err := e.catalog.RemoveClip(cmd.Context(), key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %q (%s)\n", rec.Name, rec.AudioFilePath)
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <key>",
	Short: "Show a single clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := domain.ParseUniqueKey(args[0])
		if err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		rec, err := e.db.FindAudio(cmd.Context(), key)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Full-text search over names, tags and paths",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		limit, _ := cmd.Flags().GetInt("limit")
		recs, err := e.catalog.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), recs)
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No clips found")
			return nil
		}
		for _, rec := range recs {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", rec.ID, rec.Name, rec.Tags)
		}
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete [partial]",
	Short: "Show autocomplete suggestions for a partial clip name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		var partial string
		if len(args) == 1 {
			partial = args[0]
		}
		optional, _ := cmd.Flags().GetBool("optional")

		var choices []string
		if optional {
			choices = e.catalog.AutocompleteOptional(cmd.Context(), partial)
		} else {
			choices = e.catalog.Autocomplete(cmd.Context(), partial)
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), choices)
		}
		for _, c := range choices {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

var retagCmd = &cobra.Command{
	Use:   "retag <key> <tags>",
	Short: "Replace the tags of a clip",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := domain.ParseUniqueKey(args[0])
		if err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		rec, err := e.catalog.Retag(cmd.Context(), key, args[1])
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole catalog as newline-delimited JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		orderFlag, _ := cmd.Flags().GetString("order")
		order, err := domain.ParseOrderBy(orderFlag)
		if err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if size, _ := cmd.Flags().GetInt("page-size"); size > 0 {
			e.catalog.PageSize = size
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		total, err := e.catalog.Export(cmd.Context(), order, func(page []domain.AudioRecord) error {
			for i := range page {
				if err := enc.Encode(&page[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("export stopped after %d clips: %w", total, err)
		}
		e.log.Info("Export finished", "clips", total, "order", order.String())
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		n, err := e.catalog.Reindex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d clips\n", n)
		return nil
	},
}

var errIndexDrift = errors.New("search index is out of sync, run reindex")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the search index against the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		report, err := e.catalog.CheckIndex(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
		} else {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Records: %d\nEntries: %d\n", report.Records, report.Entries)
			fmt.Fprintf(out, "Missing: %v\nOrphans: %v\nStale:   %v\n", report.Missing, report.Orphans, report.Stale)
		}
		if !report.Consistent() {
			return errIndexDrift
		}
		return nil
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the catalog tables (audio files are kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if force, _ := cmd.Flags().GetBool("force"); !force {
			return errors.New("refusing to drop the catalog without --force")
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.db.DropSchema(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Catalog dropped")
		return nil
	},
}

func authorFromFlags(cmd *cobra.Command) *domain.Author {
	if !cmd.Flags().Changed("author-id") {
		return nil
	}
	id, _ := cmd.Flags().GetInt64("author-id")
	name, _ := cmd.Flags().GetString("author-name")
	return &domain.Author{ID: id, Name: name}
}

func printRecord(w io.Writer, rec *domain.AudioRecord) error {
	if jsonOut {
		return printJSON(w, rec)
	}
	fmt.Fprintf(w, "ID:      %d\nName:    %s\nTags:    %s\nFile:    %s\nCreated: %s\n",
		rec.ID, rec.Name, rec.Tags, rec.AudioFilePath, rec.CreatedAt)
	if rec.AuthorName != nil {
		fmt.Fprintf(w, "Author:  %s\n", *rec.AuthorName)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{importCmd, addCmd} {
		c.Flags().Int64("author-id", 0, "Uploader user id")
		c.Flags().String("author-name", "", "Uploader user name")
	}
	addCmd.Flags().String("name", "", "Clip name")
	addCmd.Flags().String("tags", "", "Clip tags")

	searchCmd.Flags().Int("limit", 0, "Maximum results (defaults to SEARCH_LIMIT)")
	completeCmd.Flags().Bool("optional", false, "Prepend the NONE choice")

	exportCmd.Flags().String("order", "id", "Sort order: id, name or created_at")
	exportCmd.Flags().Int("page-size", 0, "Rows fetched per page (defaults to PAGE_SIZE)")

	dropCmd.Flags().Bool("force", false, "Confirm dropping the catalog")
}

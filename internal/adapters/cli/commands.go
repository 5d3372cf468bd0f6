package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/notescan/internal/core/domain"
)

var version = "dev"

const defaultServer = "http://localhost:8080"

type rootOptions struct {
	server  string
	timeout time.Duration
	client  *Client
}

// NewRootCommand builds the notesctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "notesctl",
		Short:         "Command-line client for the notescan API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.client = NewClient(opts.server, opts.timeout)
			return nil
		},
	}

	server := os.Getenv("NOTESCAN_URL")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", server, "notescan API base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")

	root.AddCommand(
		newUploadCmd(opts),
		newProcessCmd(opts),
		newStatusCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newDownloadCmd(opts),
		newSearchCmd(opts),
		newChatCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var process bool
	cmd := &cobra.Command{
		Use:   "upload [file...]",
		Short: "Upload scanned documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				reply, err := opts.client.Upload(cmd.Context(), path)
				if err != nil {
					failed++
					cmd.PrintErrf("%s: %v\n", path, err)
					continue
				}
				cmd.Printf("%s  %s\n", reply.DocumentID, reply.Filename)
				if process {
					if err := opts.client.Process(cmd.Context(), reply.DocumentID); err != nil {
						failed++
						cmd.PrintErrf("%s: process: %v\n", reply.DocumentID, err)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&process, "process", "p", false, "start processing after upload")
	return cmd
}

func newProcessCmd(opts *rootOptions) *cobra.Command {
	var (
		wait     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "process [document-id]",
		Short: "Start processing an uploaded document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := opts.client.Process(cmd.Context(), id); err != nil {
				return err
			}
			cmd.Printf("processing started for %s\n", id)
			if !wait {
				return nil
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-ticker.C:
				}
				result, err := opts.client.Status(cmd.Context(), id)
				if err != nil {
					return err
				}
				if result.Status == domain.StatusCompleted || result.Status == domain.StatusFailed {
					printResult(cmd, result)
					if result.Status == domain.StatusFailed {
						return errors.New("processing failed")
					}
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "poll until the run finishes")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval with --wait")
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status [document-id]",
		Short: "Show the processing record of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := opts.client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, result)
			}
			printResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the raw record as JSON")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := opts.client.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				cmd.Println("No documents.")
				return nil
			}
			for _, d := range docs {
				cmd.Printf("%s  %-10s  %s\n", d.ID, d.Status, d.Filename)
			}
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [document-id]",
		Short: "Delete a document and everything derived from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func newDownloadCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download [document-id] [pdf|text|latex|result]",
		Short: "Download a generated artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := domain.ParseArtifactType(args[1])
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = artifact.FileName(args[0])
			}
			f, err := os.Create(filepath.Clean(target))
			if err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			_, err = opts.client.Download(cmd.Context(), args[0], artifact, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(target)
				return err
			}
			cmd.Printf("saved %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: server file name)")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search processed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := opts.client.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, results)
			}
			if len(results) == 0 {
				cmd.Println("No results found.")
				return nil
			}
			for i, r := range results {
				cmd.Printf("  [%d] %s (%.2f)\n", i+1, r.Title, r.Score)
				cmd.Printf("      id: %s\n", r.DocumentID)
				if r.Snippet != "" {
					cmd.Printf("      %s\n", r.Snippet)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var documentID string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask a question about your documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := opts.client.Chat(cmd.Context(), args[0], documentID)
			if err != nil {
				return err
			}
			cmd.Println(reply.Response)
			if len(reply.Sources) > 0 {
				cmd.Printf("\nsources: %v\n", reply.Sources)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&documentID, "document", "d", "", "prioritise this document id")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("notesctl version %s\n", version)
		},
	}
}

func printResult(cmd *cobra.Command, result *domain.ProcessingResult) {
	cmd.Printf("%s  %s\n", result.DocumentID, result.Status)
	for _, step := range result.Steps {
		line := fmt.Sprintf("  %-17s %s", step.Stage, step.Status)
		switch {
		case step.Error != "":
			line += "  " + step.Error
		case step.Reason != "":
			line += "  " + step.Reason
		}
		cmd.Println(line)
	}
	if result.Error != "" {
		cmd.Printf("error: %s\n", result.Error)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

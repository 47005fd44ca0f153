package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/insights/internal/config"
	"github.com/xiaot623/gogo/insights/internal/domain"
	"github.com/xiaot623/gogo/insights/internal/service"
)

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze campaign data from a JSON file",
		Long: `Run one analysis of the campaign data in a JSON file and print the insights.
The file holds {"summary": ..., "campaigns": [...]}; any other JSON value is sent as the summary.
Example: insights analyze --user acme --file report.json --chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			file, _ := cmd.Flags().GetString("file")
			chat, _ := cmd.Flags().GetBool("chat")
			applyMockFlag(cmd, cfg)

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			req, err := parseAnalyzeFile(user, data)
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var in io.Reader
			if chat {
				in = cmd.InOrStdin()
			}
			return runAnalyze(cmd.Context(), a.service, req, in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("user", "cli", "User id owning the thread")
	cmd.Flags().String("file", "", "JSON file with campaign data")
	cmd.Flags().Bool("chat", false, "Continue with follow-up questions read from stdin")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// parseAnalyzeFile accepts either the request shape or a bare summary value.
func parseAnalyzeFile(user string, data []byte) (*domain.AnalyzeRequest, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("campaign file is not valid JSON")
	}
	req := &domain.AnalyzeRequest{UserID: user}
	var shaped struct {
		Summary   json.RawMessage `json:"summary"`
		Campaigns json.RawMessage `json:"campaigns"`
	}
	if err := json.Unmarshal(data, &shaped); err == nil && len(shaped.Summary) > 0 {
		req.Summary = shaped.Summary
		req.Campaigns = shaped.Campaigns
	} else {
		req.Summary = json.RawMessage(data)
	}
	return req, req.Validate()
}

// runAnalyze prints the analysis, then answers each non-empty line of in as a
// follow-up until EOF or "exit".
func runAnalyze(ctx context.Context, svc *service.Service, req *domain.AnalyzeRequest, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := svc.SubmitAnalysis(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	fmt.Fprintf(out, "thread: %s\n\n%s\n", res.ThreadID, res.Insights)

	if in == nil {
		return nil
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		reply, err := svc.SubmitFollowUp(ctx, &domain.ChatRequest{UserID: req.UserID, UserMessage: line})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply.Response)
	}
}

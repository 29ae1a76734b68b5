package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func fetchState(baseURL string) (snapshot, error) {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/state")
	if err != nil {
		return snapshot{}, fmt.Errorf("get state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return snapshot{}, fmt.Errorf("get state: %s: %s", resp.Status, e.Error)
	}

	var s snapshot
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return snapshot{}, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}

func stateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the running wheel's state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := fetchState(serverURL)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			fmt.Fprintf(out, "Shift:  %d (A -> %c)\n", s.Shift, rune('A'+s.Shift%26))
			fmt.Fprintf(out, "Mode:   %s\n", s.Mode)
			fmt.Fprintf(out, "Phase:  %s\n", s.Phase)
			fmt.Fprintf(out, "Input:  %s\n", s.Input)
			fmt.Fprintf(out, "Output: %s\n", s.Output)
			if s.NoticeTitle != "" {
				fmt.Fprintf(out, "Notice: %s: %s\n", s.NoticeTitle, s.NoticeMessage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot")
	return cmd
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/V-AS/CoinForLooP/internal/dispatch"
)

var (
	flagFile   string
	flagPretty bool
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Run one goal planning request from a JSON file",
	RunE:  runGoal,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Run one monthly summary request from a JSON file",
	RunE:  runSummary,
}

func init() {
	for _, cmd := range []*cobra.Command{goalCmd, summaryCmd} {
		cmd.Flags().StringVarP(&flagFile, "file", "f", "-", "Request JSON file, - for stdin")
		cmd.Flags().BoolVar(&flagPretty, "pretty", false, "Indent the JSON response")
	}
}

func runGoal(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd.InOrStdin(), flagFile)
	if err != nil {
		return err
	}

	payload, err := dispatch.DecodeGoalPlanning(data)
	if err != nil {
		return describe(err)
	}

	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.dispatcher.GoalPlanning(cmd.Context(), payload)
	if err != nil {
		return describe(err)
	}

	return writeJSON(cmd.OutOrStdout(), resp, flagPretty)
}

func runSummary(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd.InOrStdin(), flagFile)
	if err != nil {
		return err
	}

	payload, err := dispatch.DecodeSummary(data)
	if err != nil {
		return describe(err)
	}

	a, err := newApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.dispatcher.MonthlySummary(cmd.Context(), payload)
	if err != nil {
		return describe(err)
	}

	return writeJSON(cmd.OutOrStdout(), resp, flagPretty)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// describe keeps validation details and hides service internals.
func describe(err error) error {
	var dErr *dispatch.Error
	if errors.As(err, &dErr) && dErr.Kind == dispatch.KindService {
		return errors.New(dErr.Message)
	}
	return err
}

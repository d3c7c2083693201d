package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
)

// ghadapter runs a command that prints a JSON object and exposes its scalar
// fields as GitHub Actions step outputs. The command's exit status is kept so
// a failed layout check still fails the step after its outputs are written.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ghadapter command [args...]")
		os.Exit(2)
	}

	cmd := exec.Command(os.Args[1], os.Args[2:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	exitCode := 0
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "failed to run %s: %v\n", os.Args[1], err)
			os.Exit(2)
		}
		exitCode = exitErr.ExitCode()
	}
	_, _ = os.Stdout.Write(output)

	var result map[string]interface{}
	if err := json.Unmarshal(output, &result); err != nil {
		os.Exit(exitCode)
	}

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		if err := writeOutputs(githubOutput, result); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write step outputs: %v\n", err)
			if exitCode == 0 {
				exitCode = 2
			}
		}
	}

	os.Exit(exitCode)
}

func writeOutputs(path string, result map[string]interface{}) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch value := result[key].(type) {
		case map[string]interface{}, []interface{}:
			b, err := json.Marshal(value)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(f, "%s=%s\n", key, b)
			if err != nil {
				return err
			}
		case float64:
			if _, err := fmt.Fprintf(f, "%s=%s\n", key, formatNumber(value)); err != nil {
				return err
			}
		default:
			if _, err := fmt.Fprintf(f, "%s=%v\n", key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

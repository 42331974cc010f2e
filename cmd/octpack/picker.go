package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"octpack/internal/pipeline"
	"octpack/internal/services"
)

// pickTarget prints a numbered menu and reads a choice. Invalid input
// re-prompts; end of input aborts.
func pickTarget(in io.Reader, out io.Writer, targets []pipeline.Target) (pipeline.Target, error) {
	for i, target := range targets {
		fmt.Fprintf(out, "%3d) %s\n", i+1, target.Set.Name)
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Set to pack [1-%d]: ", len(targets))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return pipeline.Target{}, fmt.Errorf("read selection: %w", err)
			}
			fmt.Fprintln(out)
			return pipeline.Target{}, services.Wrap(services.ErrValidation, "pack", "select", "no set selected", nil)
		}
		choice := strings.TrimSpace(scanner.Text())
		n, err := strconv.Atoi(choice)
		if err != nil || n < 1 || n > len(targets) {
			fmt.Fprintf(out, "%q is not a number between 1 and %d\n", choice, len(targets))
			continue
		}
		return targets[n-1], nil
	}
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CrowderSoup/kanban/board"
)

// seedFile is the YAML layout read by the seed command.
type seedFile struct {
	Tasks []board.TaskInput `yaml:"tasks"`
}

// parseSeed decodes and validates a seed file. Unknown keys are an error
// so that typos do not silently drop fields.
func parseSeed(data []byte) ([]board.TaskInput, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f seedFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i := range f.Tasks {
		if err := f.Tasks[i].Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
	}
	return f.Tasks, nil
}

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Add the tasks of a YAML file to the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ready(); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			inputs, err := parseSeed(data)
			if err != nil {
				return err
			}

			added := make([]board.Task, 0, len(inputs))
			for _, in := range inputs {
				task, err := a.store.Add(in)
				if err != nil {
					return err
				}
				added = append(added, task)
			}
			if err := a.finish(); err != nil {
				return err
			}
			return render(a.out, a.output, added, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Added %d tasks\n", len(added))
				return err
			})
		},
	}
}

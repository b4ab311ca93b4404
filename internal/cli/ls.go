package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cyclone/internal/ntuple"
)

// entryView — узел дерева файла для вывода.
type entryView struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Kind    string `json:"kind,omitempty"`
	Records int64  `json:"records,omitempty"`
}

// NewLsCmd создаёт команду ls.
func NewLsCmd(appFn func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls FILE",
		Short: "List namespaces, streams and objects of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFn()

			entries, err := listFile(args[0])
			if err != nil {
				return err
			}

			headers := []string{"PATH", "TYPE", "KIND", "RECORDS"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				records := ""
				if e.Type == ntuple.EntryStream.String() {
					records = strconv.FormatInt(e.Records, 10)
				}
				rows[i] = []string{e.Path, e.Type, e.Kind, records}
			}

			return app.Out.Print(headers, rows, entries)
		},
	}
	return cmd
}

func listFile(path string) ([]entryView, error) {
	f, err := ntuple.Open(path, ntuple.ModeRead)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []entryView
	err = f.Walk(func(e ntuple.Entry) error {
		entries = append(entries, entryView{
			Path:    e.Path(),
			Type:    e.Type.String(),
			Kind:    e.Kind,
			Records: e.Records,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

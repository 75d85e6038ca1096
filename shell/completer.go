package shell

import (
	"os"
	"path/filepath"
	"strings"
)

// createFsEntryCompleter completes local file names.
func createFsEntryCompleter() func(args []string) []string {
	return func(args []string) []string {
		prefix := ""
		if len(args) > 0 {
			prefix = args[len(args)-1]
		}

		dir := filepath.Dir(prefix)
		if !strings.Contains(prefix, string(filepath.Separator)) {
			dir = "."
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil
		}

		var options []string
		for _, e := range entries {
			name := e.Name()
			if dir != "." {
				name = filepath.Join(dir, name)
			}
			if e.IsDir() {
				name += string(filepath.Separator)
			}
			if strings.HasPrefix(name, prefix) {
				options = append(options, name)
			}
		}
		return options
	}
}

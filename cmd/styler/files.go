package main

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dhamidi/styler/errs"
	"github.com/spf13/afero"
)

// expandArguments turns positional arguments into a deduplicated,
// sorted list of .java files. Directories are walked recursively;
// arguments containing glob metacharacters expand through doublestar.
func expandArguments(afs afero.Fs, args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] && strings.HasSuffix(path, ".java") {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[{") {
			matches, err := doublestar.Glob(afero.NewIOFS(afs), filepath.ToSlash(arg))
			if err != nil {
				return nil, errs.New(errs.KindUsage, "bad pattern %q: %v", arg, err)
			}
			for _, m := range matches {
				add(filepath.FromSlash(m))
			}
			continue
		}

		info, err := afs.Stat(arg)
		if err != nil {
			return nil, errs.WrapFile(errs.KindIO, arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = afero.Walk(afs, arg, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, errs.WrapFile(errs.KindIO, arg, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

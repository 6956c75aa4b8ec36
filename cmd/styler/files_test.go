package main

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func argFS(t *testing.T, paths ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("class X {}"), 0o644))
	}
	return fs
}

func TestExpandPlainFiles(t *testing.T) {
	fs := argFS(t, "a/Main.java", "b/Util.java")

	files, err := expandArguments(fs, []string{"a/Main.java", "b/Util.java"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/Main.java", "b/Util.java"}, files)
}

func TestExpandDirectoryRecursively(t *testing.T) {
	fs := argFS(t, "src/Main.java", "src/deep/nested/Util.java", "src/notes.txt")

	files, err := expandArguments(fs, []string{"src"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/Main.java", "src/deep/nested/Util.java"}, files)
}

func TestExpandDoublestarPattern(t *testing.T) {
	fs := argFS(t, "src/Main.java", "src/a/b/Deep.java", "other/Skip.java")

	files, err := expandArguments(fs, []string{"src/**/*.java"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/Main.java", "src/a/b/Deep.java"}, files)
}

func TestExpandDeduplicates(t *testing.T) {
	fs := argFS(t, "src/Main.java")

	files, err := expandArguments(fs, []string{"src", "src/Main.java"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/Main.java"}, files)
}

func TestExpandMissingPath(t *testing.T) {
	_, err := expandArguments(afero.NewMemMapFs(), []string{"nope.java"})
	assert.Error(t, err)
}

func TestSplitPathList(t *testing.T) {
	assert.Nil(t, splitPathList(""))
	roots := splitPathList("lib/a.jar" + string(os.PathListSeparator) + "../classes")
	assert.Equal(t, []string{"lib/a.jar", "../classes"}, roots)
}

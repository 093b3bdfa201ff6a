package main

import (
	"io"
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{
		{"sync", "run"},
		{"sync", "load"},
		{"templates", "show"},
		{"templates", "versions"},
		{"seed"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Errorf("Find(%v) failed: %v", path, err)
			continue
		}
		if cmd.Name() != path[len(path)-1] {
			t.Errorf("Find(%v) resolved to %q", path, cmd.Name())
		}
	}
}

func TestTemplatesShowRequiresCode(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"templates", "show"})
	root.SetErr(io.Discard)
	root.SetOut(io.Discard)
	if err := root.Execute(); err == nil {
		t.Fatal("Expected an argument error")
	}
}

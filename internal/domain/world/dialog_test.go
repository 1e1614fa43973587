package world

import (
	"errors"
	"testing"
)

func treeNodes(tree *DialogTree) map[*DialogNode]bool {
	seen := map[*DialogNode]bool{&tree.Start: true}
	var walk func(opts []DialogOption)
	walk = func(opts []DialogOption) {
		for i := range opts {
			seen[&opts[i].Response] = true
			walk(opts[i].Options)
		}
	}
	walk(tree.Start.Options)
	return seen
}

func TestTalkerCursorStaysInTree(t *testing.T) {
	tree := DefaultDialogTree()
	nodes := treeNodes(tree)
	talker := NewTalker(tree)
	rng := NewRand(3)

	for i := 0; i < 5000; i++ {
		switch rng.Intn(4) {
		case 0:
			talker.Talk()
		case 1:
			talker.Select(rng.Intn(4) - 1)
		default:
			talker.Tick()
		}
		if !nodes[talker.Node()] {
			t.Fatalf("step %d: cursor left the tree", i)
		}
	}
}

func TestLeafResetsAfterIdle(t *testing.T) {
	tree := DefaultDialogTree()
	talker := NewTalker(tree)
	talker.Talk()

	if !talker.Select(1) {
		t.Fatal("expected the goodbye option to be selectable")
	}
	if talker.SpeechText != tree.Start.Options[1].Response.Text || len(talker.SpeechOptions) != 0 {
		t.Fatalf("leaf should show its response without options, got %q %v", talker.SpeechText, talker.SpeechOptions)
	}
	for i := 0; i < endDialogDuration-1; i++ {
		talker.Tick()
	}
	if talker.AtRoot() {
		t.Fatal("reset came a frame early")
	}
	talker.Tick()
	if !talker.AtRoot() {
		t.Fatal("expected reset to the root")
	}
	if talker.SpeechText != tree.Start.Text || talker.SpeechTimer != speechDuration || len(talker.SpeechOptions) != 2 {
		t.Fatalf("root not re-shown: %q timer %d options %d", talker.SpeechText, talker.SpeechTimer, len(talker.SpeechOptions))
	}
}

func TestNestedSelectShowsChildOptions(t *testing.T) {
	tree := DefaultDialogTree()
	talker := NewTalker(tree)
	talker.Talk()

	talker.Select(0)
	if talker.Node() != &tree.Start.Options[0].Response || len(talker.SpeechOptions) != 2 {
		t.Fatalf("expected the first branch, options %d", len(talker.SpeechOptions))
	}
	if talker.SpeechTimer != speechDuration {
		t.Fatalf("branch should restart the speech timer, got %d", talker.SpeechTimer)
	}
	for i := 0; i < endDialogDuration*2; i++ {
		talker.Tick()
	}
	if talker.AtRoot() {
		t.Fatal("a conversation waiting on options must not reset")
	}
}

func TestSelectIgnoredWhenHiddenOrOutOfRange(t *testing.T) {
	tree := DefaultDialogTree()
	talker := NewTalker(tree)

	if talker.Select(0) {
		t.Fatal("selection before talking must be ignored")
	}
	talker.Talk()
	for _, idx := range []int{-1, 2, 9} {
		if talker.Select(idx) {
			t.Fatalf("Select(%d) should be ignored", idx)
		}
	}
	for i := 0; i < speechDuration; i++ {
		talker.Tick()
	}
	if talker.Select(0) {
		t.Fatal("selection after the speech timed out must be ignored")
	}
	if !talker.AtRoot() {
		t.Fatal("ignored selections moved the cursor")
	}
}

func TestParseDialogTree(t *testing.T) {
	tree, err := ParseDialogTree([]byte(`{"start":{"text":"hi","options":[{"text":"bye","response":{"text":"ok"}}]}}`))
	if err != nil {
		t.Fatalf("ParseDialogTree err: %v", err)
	}
	if tree.Start.Text != "hi" || tree.Start.Options[0].Response.Text != "ok" {
		t.Fatalf("unexpected tree %+v", tree)
	}
	if _, err := ParseDialogTree([]byte(`{"start":{"options":[]}}`)); !errors.Is(err, ErrEmptyDialog) {
		t.Fatalf("expected ErrEmptyDialog, got %v", err)
	}
	if _, err := ParseDialogTree([]byte(`{`)); err == nil {
		t.Fatal("expected a decode error")
	}
}

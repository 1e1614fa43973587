package world

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	speechDuration    = 180
	endDialogDuration = 500
	talkRange         = 100
)

var ErrEmptyDialog = errors.New("dialog tree has no start text")

type DialogNode struct {
	Text    string         `json:"text"`
	Options []DialogOption `json:"options,omitempty"`
}

type DialogOption struct {
	Text     string         `json:"text"`
	Response DialogNode     `json:"response"`
	Options  []DialogOption `json:"options,omitempty"`
}

// DialogTree is loaded once and shared read-only by every talker.
type DialogTree struct {
	Start DialogNode `json:"start"`
}

func ParseDialogTree(b []byte) (*DialogTree, error) {
	var tree DialogTree
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("decode dialog tree: %w", err)
	}
	if tree.Start.Text == "" {
		return nil, ErrEmptyDialog
	}
	return &tree, nil
}

func DefaultDialogTree() *DialogTree {
	return &DialogTree{Start: DialogNode{
		Text: "So, another farmhand wanders into my meadow. The pigs grow bold by daylight, you know.",
		Options: []DialogOption{
			{
				Text:     "Why are the pigs hunting the chickens?",
				Response: DialogNode{Text: "All animals are equal. Some simply have sharper appetites."},
				Options: []DialogOption{
					{
						Text:     "Can you stop them?",
						Response: DialogNode{Text: "Stop them? I taught them. Come back at night, when they sleep."},
						Options: []DialogOption{
							{Text: "That's monstrous.", Response: DialogNode{Text: "That is farming, child."}},
							{Text: "Teach me, then.", Response: DialogNode{Text: "Your first lesson: never turn your back on a pig."}},
						},
					},
					{Text: "I'll protect the chickens.", Response: DialogNode{Text: "Brave. The cows will not help you."}},
				},
			},
			{Text: "Goodbye, wizard.", Response: DialogNode{Text: "Mind the water. Nothing walks on water here."}},
		},
	}}
}

// Talker is the conversation cursor of one talking creature over a shared
// tree.
type Talker struct {
	tree    *DialogTree
	node    *DialogNode
	options []DialogOption

	SpeechText    string
	SpeechOptions []DialogOption
	SpeechTimer   int

	endTimer int
}

func NewTalker(tree *DialogTree) *Talker {
	if tree == nil {
		tree = DefaultDialogTree()
	}
	t := &Talker{tree: tree}
	t.reset()
	t.SpeechText = t.node.Text
	t.SpeechOptions = t.options
	return t
}

func (t *Talker) reset() {
	t.node = &t.tree.Start
	t.options = t.tree.Start.Options
	t.endTimer = 0
}

func (t *Talker) Node() *DialogNode { return t.node }

func (t *Talker) AtRoot() bool { return t.node == &t.tree.Start }

// Talk shows the current node and its options.
func (t *Talker) Talk() {
	t.SpeechText = t.node.Text
	t.SpeechOptions = t.options
	t.SpeechTimer = speechDuration
}

// Select picks the option at index while options are on screen. Out of range
// or off-screen selections are ignored.
func (t *Talker) Select(index int) bool {
	if len(t.SpeechOptions) == 0 || t.SpeechTimer <= 0 {
		return false
	}
	if index < 0 || index >= len(t.SpeechOptions) {
		return false
	}
	opt := &t.SpeechOptions[index]
	t.node = &opt.Response
	if len(opt.Options) == 0 {
		t.options = nil
		t.SpeechOptions = nil
		t.SpeechText = opt.Response.Text
		t.endTimer = 0
		return true
	}
	t.options = opt.Options
	t.Talk()
	return true
}

// Tick runs the speech countdown and returns the cursor to the root once a
// finished conversation has idled for endDialogDuration frames.
func (t *Talker) Tick() {
	if t.SpeechTimer > 0 {
		t.SpeechTimer--
	}
	if len(t.SpeechOptions) > 0 || t.AtRoot() {
		return
	}
	t.endTimer++
	if t.endTimer >= endDialogDuration {
		t.reset()
		t.Talk()
	}
}

func (t *Talker) snapshot(owner *Creature) *DialogState {
	opts := make([]string, len(t.SpeechOptions))
	for i, o := range t.SpeechOptions {
		opts[i] = o.Text
	}
	return &DialogState{
		CreatureID:  owner.ID,
		Text:        t.SpeechText,
		Options:     opts,
		SpeechTimer: t.SpeechTimer,
		Visible:     t.SpeechTimer > 0,
	}
}

package flow

import "strconv"

// ActionKind is a button the visitor can press
type ActionKind int

const (
	ActionView ActionKind = iota
	ActionStart
	ActionAnswer
	ActionNext
	ActionRestart
	ActionReveal
	ActionSeeGift
	ActionMoreClasses
	ActionNote
	ActionHome
)

var actionNames = map[ActionKind]string{
	ActionView:        "view",
	ActionStart:       "start",
	ActionAnswer:      "answer",
	ActionNext:        "next",
	ActionRestart:     "restart",
	ActionReveal:      "reveal",
	ActionSeeGift:     "see_gift",
	ActionMoreClasses: "more_classes",
	ActionNote:        "note",
	ActionHome:        "home",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "action(" + strconv.Itoa(int(k)) + ")"
}

// Action is one interaction. For ActionAnswer, Question is the question
// number the button was shown with and Option the chosen answer index.
type Action struct {
	Kind     ActionKind
	Question int
	Option   int
}

// ParseAction maps a button name to an Action. Unknown names become ActionView
// so a stale or forged form just re-renders the current screen.
func ParseAction(name string, question, option int) Action {
	for kind, n := range actionNames {
		if n == name {
			return Action{Kind: kind, Question: question, Option: option}
		}
	}
	return Action{Kind: ActionView}
}

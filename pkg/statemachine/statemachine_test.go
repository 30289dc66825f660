package statemachine

import (
	"errors"
	"testing"
)

type light string

const (
	red    light = "RED"
	green  light = "GREEN"
	yellow light = "YELLOW"
	blue   light = "BLUE"
)

var lightTransitions = Transitions[light]{
	red:    {green},
	green:  {yellow},
	yellow: {red},
}

func TestTransitionFollowsTable(t *testing.T) {
	state := red
	for _, next := range []light{green, yellow, red} {
		if err := lightTransitions.Transition(&state, next); err != nil {
			t.Fatalf("Transition(%s): %v", next, err)
		}
		if state != next {
			t.Errorf("Expected %s, got %s", next, state)
		}
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	state := red

	err := lightTransitions.Transition(&state, yellow)
	var terr *TransitionError[light]
	if !errors.As(err, &terr) {
		t.Fatalf("Expected TransitionError, got %v", err)
	}
	if terr.From != red || terr.To != yellow {
		t.Errorf("Unexpected error fields: %+v", terr)
	}
	if state != red {
		t.Errorf("State changed on illegal transition: %s", state)
	}
}

func TestTransitionSameStateIsNoop(t *testing.T) {
	state := green
	if err := lightTransitions.Transition(&state, green); err != nil {
		t.Errorf("Expected no error re-entering state, got %v", err)
	}
}

func TestKnown(t *testing.T) {
	for _, s := range []light{red, green, yellow} {
		if !lightTransitions.Known(s) {
			t.Errorf("Expected %s to be known", s)
		}
	}
	if lightTransitions.Known(blue) {
		t.Error("Expected blue to be unknown")
	}
}

package services

// Transition is what a single activation asks of the playback engine
type Transition struct {
	Play   string   // track to start, empty if none
	Stop   string   // track to stop, empty if none
	Halted []string // previously active tracks stopped by a switch
	Active string   // selection after the activation, empty if none
}

// Selection tracks the single active entry of an ordered list.
//
// Activating the active entry clears it and stops it. Activating any other
// entry plays it and makes it active. Unless StopPreviousOnSwitch is set, the
// entry that was active before a switch is never told to stop, so two tracks
// can end up playing at once.
type Selection struct {
	StopPreviousOnSwitch bool

	active string
}

// Active returns the active entry and whether there is one
func (s *Selection) Active() (string, bool) {
	return s.active, s.active != ""
}

// Activate applies a tap on name
func (s *Selection) Activate(name string) Transition {
	if s.active != "" && s.active == name {
		s.active = ""
		return Transition{Stop: name}
	}

	t := Transition{Play: name, Active: name}
	if s.StopPreviousOnSwitch && s.active != "" {
		t.Halted = []string{s.active}
	}
	s.active = name
	return t
}

// Clear drops the active entry without producing a transition
func (s *Selection) Clear() {
	s.active = ""
}

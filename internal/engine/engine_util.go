package engine

import "slices"

func NewEmptyView() View {
	return View{
		Players: []Participant{},
		Names:   map[string]string{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// BuildNames maps participant id to display name. It is rebuilt from scratch
// for every roster the client sees.
func BuildNames(players []Participant) map[string]string {
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	return names
}

// Hand returns the local participant's hand in canonical order, or nil for a
// spectator.
func (v View) Hand() []Card {
	if v.Session == nil {
		return nil
	}
	return SortCanonical(v.Session.MyHand)
}

func (v View) CurrentPlayer() string {
	if v.Session == nil {
		return ""
	}
	return v.Session.CurrentPlayer
}

func (v View) IsLandlord(id string) bool {
	if v.Session == nil || id == "" {
		return false
	}
	return slices.Contains(v.Session.LandlordIDs, id)
}

func (v View) Participant(id string) (Participant, bool) {
	for _, p := range v.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// FinalScores is only populated once the session is TERMINATED.
func (v View) FinalScores() map[string]int {
	if v.Session == nil || v.Phase != PhaseTerminated {
		return nil
	}
	return v.Session.Scores
}

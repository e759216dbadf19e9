package core

// Role identifies which conversational participant produced a turn.
type Role string

const (
	// RoleClinician is the fixed interviewer persona. The clinician always
	// opens the visit and speaks on even turns.
	RoleClinician Role = "clinician"
	// RolePatient is the randomized respondent persona, speaking on odd turns.
	RolePatient Role = "patient"
)

// RoleForTurn returns the speaking role for a 0-indexed turn. Role assignment
// depends only on the turn index, so a skipped turn never shifts the
// alternation of the turns that follow it.
func RoleForTurn(turn int) Role {
	if turn%2 == 0 {
		return RoleClinician
	}
	return RolePatient
}

// Room is one of the fixed set of conversation slots configured at process
// start. Rooms are immutable once configured; their run state lives in the
// room registry, not here.
type Room struct {
	ID   string `json:"roomId" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

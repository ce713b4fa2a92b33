package database

import (
	"time"
)

// KeySelectedPortion is the app_state key of the persisted selection.
const KeySelectedPortion = "selected_portion"

// StateEntry is one row of app_state.
type StateEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PortionCount is the number of stored verses for one portion label.
type PortionCount struct {
	Portion string `json:"parasha"`
	Verses  int    `json:"verses"`
}

// CorpusStats summarizes the stored corpus.
type CorpusStats struct {
	TotalVerses int            `json:"total_verses"`
	Portions    []PortionCount `json:"portions"`
}

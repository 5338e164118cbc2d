// Package stage picks the bounded windows of the long history a run is played
// on and expands a chosen window into the fine-grained series the bots trade.
package stage

import "bot-arena-go/internal/models"

const (
	ModeTemplate = "template"
	ModeScored   = "scored"
)

// Select returns the stage catalog for mode. Unknown modes use the templates.
func Select(mode string, history []models.PricePoint) []models.Stage {
	if mode == ModeScored {
		return Scored(history, DefaultOptions())
	}
	return Templates(history)
}

// Find returns the stage with id from stages.
func Find(stages []models.Stage, id string) (models.Stage, bool) {
	for _, s := range stages {
		if s.ID == id {
			return s, true
		}
	}
	return models.Stage{}, false
}

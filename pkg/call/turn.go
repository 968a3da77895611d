package call

import (
	"log/slog"

	"github.com/vango-go/callbridge/pkg/voice/stt"
)

// turnDetector tracks whether the caller is mid-utterance and surfaces
// completed turns. Transcription emits many event types; only turn
// boundaries matter here, the rest are ignored.
type turnDetector struct {
	speaking bool
}

// observe feeds one transcription event through the detector. It returns
// the finalized transcript when the event completes a user turn.
func (d *turnDetector) observe(logger *slog.Logger, ev stt.Event) (endOfTurn bool, transcript string) {
	switch {
	case ev.IsStartOfTurn():
		d.speaking = true
		logger.Debug("user started speaking")
		return false, ""
	case ev.IsEndOfTurn():
		d.speaking = false
		logger.Debug("user finished speaking")
		return true, ev.Transcript
	default:
		return false, ""
	}
}

// userSpeaking reports whether a start-of-turn has been seen without a
// matching end-of-turn.
func (d *turnDetector) userSpeaking() bool {
	return d.speaking
}

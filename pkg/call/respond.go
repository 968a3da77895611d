package call

import (
	"context"
)

// handleTurn runs the response pipeline for one completed user turn:
// record the transcript, generate a reply, interrupt any playback still
// running, and stream the synthesized reply back to the call.
func (o *Orchestrator) handleTurn(ctx context.Context, leg Leg, state *callState, transcript string) {
	sess := state.session()
	if sess == nil {
		o.logger.Warn("turn completed before stream start, dropping", "transcript", transcript)
		o.metrics.RecordTurn("no_session")
		return
	}

	o.logger.Info("user turn", "stream_id", sess.StreamID, "transcript", transcript)

	// The user turn stays in history even if generation fails; the caller
	// said it either way.
	sess.AppendUser(transcript)

	reply, err := o.responder.Respond(ctx, sess.History())
	if err != nil {
		o.logger.Error("reply generation failed", "stream_id", sess.StreamID, "error", err)
		o.metrics.RecordCollaboratorError("llm")
		o.metrics.RecordTurn("generation_failed")
		return
	}
	sess.AppendAssistant(reply)

	o.logger.Info("assistant turn", "stream_id", sess.StreamID, "reply", reply)

	o.preparePlayback(leg, sess)

	if err := o.streamReply(ctx, leg, sess, reply); err != nil {
		o.logger.Error("reply playback failed", "stream_id", sess.StreamID, "error", err)
		o.metrics.RecordCollaboratorError("tts")
		o.metrics.RecordTurn("playback_failed")
		return
	}
	o.metrics.RecordTurn("ok")
}

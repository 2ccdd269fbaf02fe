// Package voice couples speech recognition and speech synthesis to a chat
// session.
//
// The Bridge owns a two-state recognition machine (Idle, Listening), turns
// recognition results into a running transcript, and hands the transcript to
// the session when a result is final. When the session finishes producing a
// reply it speaks the newest assistant message, unless muted.
//
// # Capabilities
//
// Both capabilities are injected at construction and may be nil:
//
//   - stt.Recognizer: nil disables listening. StartListening becomes a no-op.
//   - tts.Synthesizer: nil disables auto-speak.
//
// A capability may also implement Available() bool to report that it is
// temporarily unreachable (for example a browser engine that disconnected).
//
// # Threading
//
// Every state change runs on the session's event loop. Recognition callbacks
// may arrive on any goroutine; the Bridge posts them onto the loop and drops
// events that belong to a recognition session it has already left.
//
// # Usage
//
//	bridge := voice.NewBridge(loop, session, recognizer, synthesizer,
//	    voice.WithLogger(log.Component("voice")),
//	)
//	defer bridge.Close()
//
//	_ = bridge.ToggleListening()
//	_ = bridge.SetMuted(true)
//
//	status := bridge.Status()
//	fmt.Println(status.State, status.Muted)
package voice

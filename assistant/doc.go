// Package assistant answers user utterances end to end.
//
// An Assistant classifies the utterance, then runs the handler registered
// for the resulting intent. Handlers that need prose build a prompt and
// send it through the generation dispatcher; when every backend fails the
// handler answers with a fixed apology instead of an error.
//
// Requests run on a bounded ants worker pool, one task per request.
// Weather, user preferences and nearby places come from collaborators
// supplied by the caller.
package assistant

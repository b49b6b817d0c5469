/*
Package engine implements the template graph engine.

The engine validates a template's structure, answers traversal queries and applies
per-session state transitions. It is pure: every operation is a synchronous
computation over the values passed in, and results are returned as new values.
Templates are never mutated, so any number of sessions may share one template.

The engine performs no locking. Callers that advance the same session from several
goroutines must serialize those writes themselves (see package session).

	eng := engine.New()
	res := eng.Validate(tpl)
	if err := res.Err(); err != nil {
		return err
	}
	sess, _ := eng.NewSession(tpl, 1, "Friday game", "guild-123")
	sess, err := eng.Advance(tpl, sess, 2)
*/
package engine

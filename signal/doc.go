// Package signal provides named signal dispatch and procedure tables for
// runtime objects.
//
// A Handler holds a set of declared signals. Callbacks connect to a signal by
// name and receive a *CallData parameter bag when it is emitted:
//
//	h := signal.NewHandler("destroy", "rename")
//	id := h.Connect("rename", func(cd *signal.CallData) {
//	    log.Println(cd.String("prev_name"), "->", cd.String("new_name"))
//	})
//	defer h.Disconnect(id)
//
// Emitting a signal that was never declared is a no-op. A ProcHandler is the
// request/response counterpart: a table of named procedures that fill in
// the CallData they are called with.
package signal

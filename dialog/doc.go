// Package dialog runs declarative adaptive dialogs.
//
// A dialog definition (YAML or JSON) lists triggers (OnBeginDialog,
// OnConversationUpdate, OnMessageActivity, OnUnknownIntent), each with a
// list of actions. The definition is compiled into path-addressed action
// nodes; the pending actions of each active dialog form its plan, which is
// persisted with the dialog stack in conversation state so a conversation
// can wait for input across turns.
//
// Actions read and write memory through dotted paths in four scopes: user,
// conversation, dialog and turn. Values starting with "=" are expressions,
// strings containing ${...} are rendered by the dialog's language generator.
//
// Manager ties it together for a turn:
//
//	root, _ := dialog.Load(explorer, "Main.dialog")
//	mgr := dialog.NewManager(root)
//	res, err := mgr.OnTurn(tc)
package dialog

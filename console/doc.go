// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package console is the operator's terminal view of the test stand.
//
// [Bridge] adapts the link to bubbletea: it is the link's wire.Handler
// and connection hook, and turns every inbound message into an [Event]
// on a channel that [Model] listens to. [Model] shows connection state,
// the latest value of every configured sensor, the controller's log
// and the program library, and sends actions and program selections
// back through a [Sender].
//
// The action keys are toggles, as on the stand's original button
// panel: pressing the fill key alternates between open_fill and
// close_fill, the sequence key between begin_burn_phase and
// abort_burn_phase. Abort is not a toggle.
package console

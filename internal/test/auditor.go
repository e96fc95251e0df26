// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"testing"

	"github.com/sapcc/go-api-declarations/cadf"
	"github.com/sapcc/go-bits/assert"
	"github.com/sapcc/go-bits/audittools"
)

// AuditEvent is the normalized form in which the mock Auditor records
// events: only the fields that tests want to assert on, without timestamps
// and request specifics.
type AuditEvent struct {
	Action     cadf.Action
	Outcome    int
	TargetType string
	TargetID   string
	Workspace  string
	UserName   string
}

// Auditor is a test recorder that satisfies the audittools.Auditor interface.
type Auditor struct {
	events []AuditEvent
}

// Record implements the audittools.Auditor interface.
func (a *Auditor) Record(event audittools.Event) {
	target := event.Target.Render()
	a.events = append(a.events, AuditEvent{
		Action:     event.Action,
		Outcome:    event.ReasonCode,
		TargetType: target.TypeURI,
		TargetID:   target.ID,
		Workspace:  target.ProjectID,
		UserName:   event.User.UserName(),
	})
}

// ExpectEvents checks that the recorded events are equivalent to the
// supplied expectation, then clears the recording.
func (a *Auditor) ExpectEvents(t *testing.T, expectedEvents ...AuditEvent) {
	t.Helper()
	if len(a.events) == 0 && len(expectedEvents) == 0 {
		return
	}
	assert.DeepEqual(t, "audit events", a.events, expectedEvents)
	a.events = nil
}

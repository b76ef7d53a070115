package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	line := FormatLine(ReservationMessage{
		Type:          MsgApproved,
		ReservationID: "r-1",
		RoomID:        "room-9",
		Actor:         "admin@hub",
		At:            "2024-05-01T10:00:00Z",
	})
	assert.Equal(t, "[2024-05-01T10:00:00Z] reservation.approved | reservation_id=r-1 | room_id=room-9 | actor=\"admin@hub\"\n", line)
}

func TestAuditLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reservations.log")
	audit := NewAuditLog(path)

	for _, m := range []ReservationMessage{
		{Type: MsgEventLinked, ReservationID: "r-1", EventID: "e-1", Actor: "org", At: "t1"},
		{Type: MsgPhaseAttached, ReservationID: "r-1", PhaseID: "p-1", Actor: "org", At: "t2"},
	} {
		body, err := json.Marshal(m)
		require.NoError(t, err)
		require.NoError(t, audit.Handle(body))
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "event_id=e-1")
	assert.Contains(t, lines[1], "phase_id=p-1")
}

func TestAuditLogRejectsBadPayload(t *testing.T) {
	audit := NewAuditLog(filepath.Join(t.TempDir(), "a.log"))
	assert.Error(t, audit.Handle([]byte("{not json")))
	assert.Error(t, audit.Handle([]byte(`{"type":""}`)))
}

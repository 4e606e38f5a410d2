package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCloneDetachesNestedMaps(t *testing.T) {
	inner := map[string]any{"status": "Pending"}
	original := map[string]any{"before": inner}

	cloned := Clone(original)
	inner["status"] = "Delivered"

	got := cloned["before"].(map[string]any)
	require.Equal(t, "Pending", got["status"])
}

func TestCloneNormalisesTimestamps(t *testing.T) {
	at := time.Date(2026, 3, 10, 14, 30, 0, 0, time.FixedZone("UTC+6", 6*3600))
	var nilTime *time.Time

	cloned := Clone(map[string]any{
		"departure": at,
		"arrival":   &at,
		"payment":   nilTime,
	})

	require.Equal(t, "2026-03-10T08:30:00Z", cloned["departure"])
	require.Equal(t, "2026-03-10T08:30:00Z", cloned["arrival"])
	require.Nil(t, cloned["payment"])
}

func TestCloneCopiesSlices(t *testing.T) {
	urls := []string{"https://res.example.com/a.png"}
	cloned := Clone(map[string]any{"media_urls": urls})
	urls[0] = "https://res.example.com/b.png"

	got := cloned["media_urls"].([]any)
	require.Equal(t, "https://res.example.com/a.png", got[0])
}

func TestCloneNilStaysNil(t *testing.T) {
	require.Nil(t, Clone(nil))
}

func TestActionValid(t *testing.T) {
	require.True(t, ActionCreated.Valid())
	require.True(t, ActionUpdated.Valid())
	require.True(t, ActionDeleted.Valid())
	require.False(t, Action("archived").Valid())
}

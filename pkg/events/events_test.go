package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeUntil(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{-5000, "Overdue"},
		{0, "Overdue"},
		{900, "0s"},
		{45 * 1000, "45s"},
		{5 * 60 * 1000, "5m"},
		{90 * 60 * 1000, "1h 30m"},
		{26 * 60 * 60 * 1000, "1d 2h"},
		{3 * 24 * 60 * 60 * 1000, "3d 0h"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TimeUntil(tc.ms), "ms=%d", tc.ms)
	}
}

func TestEventWireFormatOmitsUnusedFields(t *testing.T) {
	data, err := json.Marshal(Event{Kind: KindToggleMic})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"toggle-mic"}`, string(data))

	data, err = json.Marshal(Event{Kind: KindTranscript, Text: "hi", Speaker: "bot", IsTyping: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"transcript","text":"hi","speaker":"bot","isTyping":true}`, string(data))
}

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Logger_Key_Value_Fields(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	log := NewWithWriter("debug", &buf).With("component", "relay")
	log.Info("Message persisted", "room_id", "u1-u2", "id", 7)

	var line map[string]interface{}
	req.NoError(json.Unmarshal(buf.Bytes(), &line))
	req.Equal("info", line["level"])
	req.Equal("Message persisted", line["message"])
	req.Equal("relay", line["component"])
	req.Equal("u1-u2", line["room_id"])
	req.EqualValues(7, line["id"])
}

func Test_Logger_Level_Filtering(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	log := NewWithWriter("warn", &buf)
	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	req.Len(lines, 1)
	req.Contains(lines[0], "shown")
}

func Test_Logger_Unknown_Level_Defaults_To_Info(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	log := NewWithWriter("loud", &buf)
	log.Debug("hidden")
	log.Info("shown")

	req.NotContains(buf.String(), "hidden")
	req.Contains(buf.String(), "shown")
}

package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultJSONShapes(t *testing.T) {
	t.Parallel()

	t.Run("delivery report", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(Delivered(1, 1, nil))
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"success","sent_count":1,"total_recipients":1}`, string(data))
	})

	t.Run("delivery with per-recipient results", func(t *testing.T) {
		t.Parallel()
		res := Delivered(0, 1, []RecipientResult{{Token: "tok", Status: StatusError, Error: "HTTP 500"}})
		data, err := json.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"error","sent_count":0,"total_recipients":1,
			"results":[{"token":"tok","status":"error","error":"HTTP 500"}]}`, string(data))
	})

	t.Run("skipped", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(Skipped(ReasonNoRecipients))
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"skipped","reason":"no_recipients"}`, string(data))
	})

	t.Run("error entry", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(&Result{Error: "boom"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"boom"}`, string(data))

		var back Result
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, "boom", back.Error)
		assert.False(t, back.Succeeded())
	})

	t.Run("map of results", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(map[string]*Result{"email": Delivered(1, 1, nil)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"email":{"status":"success","sent_count":1,"total_recipients":1}}`, string(data))
	})
}

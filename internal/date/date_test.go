package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", d.String())

	_, err = Parse("10.03.2026")
	require.Error(t, err)
	_, err = Parse("")
	require.Error(t, err)
}

func TestFromTimeTruncates(t *testing.T) {
	d := FromTime(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, "2026-03-10", d.String())
}

func TestJSONRoundTrip(t *testing.T) {
	d := New(2026, time.March, 10)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-10"`, string(data))

	var back Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d.String(), back.String())

	require.Error(t, json.Unmarshal([]byte(`"not a date"`), &back))
}

package cmd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeVendorForSet(t *testing.T, lastSet *url.Values) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		switch r.URL.Path {
		case "/get/":
			_, _ = io.WriteString(w, `{"hw_generation": "gen2", "status": "running",
				"power": "on", "mode": "heat", "setpoint": "20.0", "fan": "auto",
				"temperature": 18.5, "alarm": "2020-01-01 10:00:00UTC T<10"}`)
		case "/set/":
			*lastSet = r.PostForm
			_, _ = io.WriteString(w, `{"status": "ack"}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	viper.Set("huskoll.hwid", "hw-1234")
	viper.Set("huskoll.token", "test-token")
	viper.Set("huskoll.base-url", server.URL)
	t.Cleanup(func() {
		viper.Set("huskoll.hwid", "")
		viper.Set("huskoll.token", "")
		viper.Set("huskoll.base-url", "")
	})

	return server
}

func setFlagForTest(t *testing.T, name, value string) {
	t.Helper()

	require.NoError(t, setCmd.Flags().Set(name, value))
	t.Cleanup(func() {
		flag := setCmd.Flags().Lookup(name)
		require.NoError(t, flag.Value.Set(flag.DefValue))
		flag.Changed = false
	})
}

// The out-of-range advisory fires even when the setpoint rides along
// with other parameters in the same invocation.
func TestSetWarnsOnOutOfRangeSetpointWithOtherFlags(t *testing.T) {
	var lastSet url.Values
	newFakeVendorForSet(t, &lastSet)

	hook := logtest.NewGlobal()
	defer hook.Reset()

	setFlagForTest(t, "temp", "40")
	setFlagForTest(t, "mode", "heat")

	require.NoError(t, doSet(setCmd))

	assert.Equal(t, "40", lastSet.Get("setpoint"))
	assert.Equal(t, "heat", lastSet.Get("mode"))

	warned := false
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, "out of the range") {
			warned = true
		}
	}
	assert.True(t, warned, "expected a range advisory log entry")
}

func TestSetSuppressesRangeWarning(t *testing.T) {
	var lastSet url.Values
	newFakeVendorForSet(t, &lastSet)

	hook := logtest.NewGlobal()
	defer hook.Reset()

	setFlagForTest(t, "temp", "40")
	setFlagForTest(t, "mode", "heat")
	setFlagForTest(t, "suppress-range-warning", "true")

	require.NoError(t, doSet(setCmd))
	assert.Equal(t, "40", lastSet.Get("setpoint"))

	for _, entry := range hook.AllEntries() {
		assert.NotContains(t, entry.Message, "out of the range")
	}
}

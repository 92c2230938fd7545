// FILE: logmonitor/src/internal/limit/net_test.go
package limit

import (
	"testing"
	"time"

	"logmonitor/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNetLimiter_Disabled(t *testing.T) {
	assert.Nil(t, NewNetLimiter(nil, log.NewLogger()))
	assert.Nil(t, NewNetLimiter(&config.NetLimitConfig{}, log.NewLogger()))

	var l *NetLimiter
	assert.Equal(t, ReasonAllowed, l.Check("1.2.3.4:5"))
	l.AddConnection("1.2.3.4:5")
	l.RemoveConnection("1.2.3.4:5")
	assert.Equal(t, false, l.GetStats()["enabled"])
}

func TestNetLimiter_AccessLists(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{
		IPWhitelist: []string{"10.0.0.0/8", "192.168.1.5"},
		IPBlacklist: []string{"10.1.0.0/16", "bogus"},
	}, log.NewLogger())
	require.NotNil(t, l)

	assert.Equal(t, ReasonAllowed, l.Check("10.2.3.4:100"))
	assert.Equal(t, ReasonAllowed, l.Check("192.168.1.5:100"))
	assert.Equal(t, ReasonBlacklisted, l.Check("10.1.2.3:100"))
	assert.Equal(t, ReasonNotWhitelisted, l.Check("172.16.0.1:100"))
	assert.Equal(t, ReasonInvalidIP, l.Check("nonsense"))

	ok, code, _ := l.CheckHTTP("172.16.0.1:100")
	assert.False(t, ok)
	assert.Equal(t, 403, code)
}

func TestNetLimiter_Rate(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         2,
	}, log.NewLogger())
	require.NotNil(t, l)

	clock := time.Unix(1000, 0)
	l.now = func() time.Time { return clock }

	assert.Equal(t, ReasonAllowed, l.Check("127.0.0.1:1"))
	assert.Equal(t, ReasonAllowed, l.Check("127.0.0.1:2"))
	assert.Equal(t, ReasonRateLimited, l.Check("127.0.0.1:3"))
	assert.Equal(t, ReasonAllowed, l.Check("127.0.0.2:1"), "budget is per IP")

	clock = clock.Add(time.Second)
	assert.Equal(t, ReasonAllowed, l.Check("127.0.0.1:4"))

	ok, code, _ := l.CheckHTTP("127.0.0.1:5")
	assert.False(t, ok)
	assert.Equal(t, 429, code)
}

func TestNetLimiter_ConnectionCap(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{
		Enabled:             true,
		MaxConnectionsPerIP: 2,
	}, log.NewLogger())
	require.NotNil(t, l)

	for i := 0; i < 2; i++ {
		require.Equal(t, ReasonAllowed, l.Check("127.0.0.1:1"))
		l.AddConnection("127.0.0.1:1")
	}
	assert.Equal(t, int64(2), l.Connections("127.0.0.1:9"))
	assert.Equal(t, ReasonConnectionLimited, l.Check("127.0.0.1:1"))

	l.RemoveConnection("127.0.0.1:1")
	assert.Equal(t, ReasonAllowed, l.Check("127.0.0.1:1"))

	stats := l.GetStats()
	assert.Equal(t, uint64(1), stats["total_blocked"])
}

func TestNetLimiter_Cleanup(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{Enabled: true, RequestsPerSecond: 10, BurstSize: 10}, log.NewLogger())
	require.NotNil(t, l)

	clock := time.Unix(1000, 0)
	l.now = func() time.Time { return clock }
	l.lastCleanup = clock

	l.Check("127.0.0.1:1")
	l.AddConnection("127.0.0.2:1")

	clock = clock.Add(10 * time.Minute)
	l.Check("127.0.0.3:1")

	assert.Equal(t, 2, l.GetStats()["active_ips"], "idle IP without connections is dropped")
}

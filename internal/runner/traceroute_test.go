package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTracerouteXML = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap">
  <host>
    <status state="up"/>
    <address addr="10.0.0.50" addrtype="ipv4"/>
    <trace proto="icmp">
      <hop ttl="1" ipaddr="192.168.1.1" rtt="0.5"/>
      <hop ttl="2" ipaddr="10.0.0.1" rtt="1.2"/>
      <hop ttl="4" ipaddr="10.0.0.50" rtt="2.2"/>
    </trace>
  </host>
  <host>
    <status state="up"/>
    <address addr="192.168.1.5" addrtype="ipv4"/>
  </host>
</nmaprun>`

func TestParseTracerouteXML(t *testing.T) {
	connections, err := ParseTracerouteXML(sampleTracerouteXML, "203.0.113.7")
	require.NoError(t, err)
	require.Len(t, connections, 2)

	first := connections[0]
	assert.Equal(t, "10.0.0.50", first.DstIP)
	require.Len(t, first.Hops, 3)

	assert.Equal(t, "203.0.113.7", first.Hops[0].PrevIP)
	assert.Equal(t, 1, first.Hops[0].Hops)
	assert.Equal(t, "192.168.1.1", first.Hops[0].NextIP)

	assert.Equal(t, "192.168.1.1", first.Hops[1].PrevIP)
	assert.Equal(t, 1, first.Hops[1].Hops)
	assert.Equal(t, "10.0.0.1", first.Hops[1].NextIP)

	// A skipped TTL shows up as a multi-hop edge.
	assert.Equal(t, "10.0.0.1", first.Hops[2].PrevIP)
	assert.Equal(t, 2, first.Hops[2].Hops)
	assert.Equal(t, "10.0.0.50", first.Hops[2].NextIP)

	// The scanning host itself carries no trace element.
	second := connections[1]
	assert.Equal(t, "192.168.1.5", second.DstIP)
	assert.Empty(t, second.Hops)
}

func TestParseTracerouteXMLInvalid(t *testing.T) {
	_, err := ParseTracerouteXML("<broken", "1.2.3.4")
	assert.Error(t, err)
}

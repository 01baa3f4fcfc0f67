package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNmapXML = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap">
  <host>
    <status state="up"/>
    <address addr="192.168.1.10" addrtype="ipv4"/>
    <address addr="aa:bb:cc:dd:ee:ff" addrtype="mac"/>
    <hostnames>
      <hostname name="web01.internal" type="PTR"/>
    </hostnames>
    <ports>
      <port protocol="tcp" portid="80">
        <state state="open"/>
        <service name="http" product="Apache httpd" version="2.4.7" extrainfo="(Ubuntu)">
          <cpe>cpe:/a:apache:http_server:2.4.7</cpe>
        </service>
      </port>
      <port protocol="tcp" portid="22">
        <state state="closed"/>
        <service name="ssh"/>
      </port>
    </ports>
  </host>
  <host>
    <status state="down"/>
    <address addr="192.168.1.11" addrtype="ipv4"/>
  </host>
</nmaprun>`

func TestParseNmapXML(t *testing.T) {
	results, err := ParseNmapXML(sampleNmapXML, []string{"internal"})
	require.NoError(t, err)

	// Only the host that is up survives.
	require.Len(t, results.Hosts, 1)
	host := results.Hosts[0]
	assert.Equal(t, "192.168.1.10", host.IPAddress)
	assert.Equal(t, []string{"web01.internal"}, host.DomainNames)
	assert.Equal(t, []string{"internal"}, host.Tag)
	assert.Equal(t, []string{"192.168.1.0/24"}, host.Subnets)

	require.Len(t, results.Subnets, 1)
	assert.Equal(t, "192.168.1.0/24", results.Subnets[0].IPRange)

	require.Len(t, results.Devices, 1)
	assert.Equal(t, "web01.internal", results.Devices[0].Name)
	assert.Equal(t, "192.168.1.10", results.Devices[0].IPAddress)

	// Only the open port yields a software version and an application.
	require.Len(t, results.SoftwareVersions, 1)
	sv := results.SoftwareVersions[0]
	assert.Equal(t, "cpe:2.3:a:apache:http_server:2.4.7:*:*:*:*:*:*:*", sv.Version)
	assert.Equal(t, "Apache httpd 2.4.7 ((Ubuntu))", sv.Description)
	assert.Equal(t, []string{"192.168.1.10"}, sv.IPAddresses)

	require.Len(t, results.Applications, 1)
	assert.Equal(t, "http (port 80/tcp)", results.Applications[0].Name)
	assert.Equal(t, "192.168.1.10", results.Applications[0].Device)
}

func TestParseNmapXMLInvalid(t *testing.T) {
	_, err := ParseNmapXML("not xml at all", nil)
	assert.Error(t, err)
}

func TestConvertCPEToVersion23(t *testing.T) {
	assert.Equal(t,
		"cpe:2.3:a:apache:http_server:2.4.7:*:*:*:*:*:*:*",
		ConvertCPEToVersion23("cpe:/a:apache:http_server:2.4.7"))

	// CPEs without a version component are unusable downstream.
	assert.Equal(t, "", ConvertCPEToVersion23("cpe:/o:canonical:ubuntu_linux"))
	assert.Equal(t, "", ConvertCPEToVersion23("cpe:/a:nginx:nginx:"))
	assert.Equal(t, "", ConvertCPEToVersion23("bogus"))
}

func TestBuildVersionDescriptionFallsBackToName(t *testing.T) {
	service := &nmapService{Name: "telnet"}
	assert.Equal(t, "telnet", buildVersionDescription(service))
}

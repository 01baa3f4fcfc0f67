package runner

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/models"
)

// identURL serves back the public source address of this machine. The
// traceroute hop chain starts from it.
const identURL = "https://ident.me"

// PublicIP returns the public source IP of the scanning machine, or an
// empty string when it cannot be determined.
func PublicIP(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, identURL, nil)
	if err != nil {
		return ""
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}

// TopologyScan runs the traceroute scan over all targets and assembles the
// hop-path document published to the topology endpoint.
func (r *Runner) TopologyScan(ctx context.Context, targets []string) (*models.TracerouteResult, error) {
	result := &models.TracerouteResult{
		Time: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: []models.Connection{},
	}
	sourceIP := PublicIP(ctx)

	for _, target := range targets {
		r.log.Info("topology scan started", "target", target)

		xmlOutput, err := r.TracerouteScan(ctx, target)
		if err != nil {
			return nil, err
		}

		connections, err := ParseTracerouteXML(xmlOutput, sourceIP)
		if err != nil {
			return nil, err
		}
		result.Data = append(result.Data, connections...)

		r.log.Info("topology scan succeeded", "target", target)
	}

	return result, nil
}

// ParseTracerouteXML extracts per-destination hop chains from the XML
// output of "nmap -sn -n --traceroute". The hop count of each edge is the
// TTL delta between consecutive trace entries; the chain starts at the
// scanning machine's own address.
func ParseTracerouteXML(nmapOutput, sourceIP string) ([]models.Connection, error) {
	var run nmapRun
	if err := xml.Unmarshal([]byte(nmapOutput), &run); err != nil {
		return nil, faults.Wrap(faults.BadInput, err, "parsing nmap traceroute XML")
	}

	var connections []models.Connection
	for _, host := range run.Hosts {
		if len(host.Addresses) == 0 {
			continue
		}

		connection := models.Connection{
			DstIP: host.Addresses[0].Addr,
			Hops:  []models.Hop{},
		}

		// The scanning host itself carries no trace element.
		if host.Trace != nil {
			prevIP := sourceIP
			prevTTL := 0
			for _, hop := range host.Trace.Hops {
				connection.Hops = append(connection.Hops, models.Hop{
					PrevIP: prevIP,
					Hops:   hop.TTL - prevTTL,
					NextIP: hop.IPAddr,
				})
				prevTTL = hop.TTL
				prevIP = hop.IPAddr
			}
		}

		connections = append(connections, connection)
	}

	return connections, nil
}

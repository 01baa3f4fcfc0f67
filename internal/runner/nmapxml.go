package runner

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/ipnet"
	"github.com/resilmesh/casm/pkg/models"
)

// nmapRun mirrors the parts of the nmap XML document the parser consumes.
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Status    nmapStatus     `xml:"status"`
	Addresses []nmapAddress  `xml:"address"`
	Hostnames []nmapHostname `xml:"hostnames>hostname"`
	Ports     []nmapPort     `xml:"ports>port"`
	Trace     *nmapTrace     `xml:"trace"`
}

type nmapStatus struct {
	State string `xml:"state,attr"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapHostname struct {
	Name string `xml:"name,attr"`
}

type nmapPort struct {
	Protocol string       `xml:"protocol,attr"`
	PortID   string       `xml:"portid,attr"`
	State    nmapState    `xml:"state"`
	Service  *nmapService `xml:"service"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name      string   `xml:"name,attr"`
	Product   string   `xml:"product,attr"`
	Version   string   `xml:"version,attr"`
	ExtraInfo string   `xml:"extrainfo,attr"`
	CPEAttr   string   `xml:"cpe,attr"`
	CPEs      []string `xml:"cpe"`
}

type nmapTrace struct {
	Hops []nmapHop `xml:"hop"`
}

type nmapHop struct {
	TTL    int    `xml:"ttl,attr"`
	IPAddr string `xml:"ipaddr,attr"`
}

// ParseNmapXML converts a raw nmap XML document into the asset document
// published to the ISIM API: hosts that are up, their devices, open
// services, detected software versions, and the /24 (or /64) subnets of all
// observed addresses.
func ParseNmapXML(nmapOutput string, tag []string) (*models.NmapResults, error) {
	var run nmapRun
	if err := xml.Unmarshal([]byte(nmapOutput), &run); err != nil {
		return nil, faults.Wrap(faults.BadInput, err, "parsing nmap XML")
	}

	results := &models.NmapResults{}
	subnetSet := map[string]bool{}
	var softwareVersions []models.SoftwareVersion
	var applications []models.Application

	for _, host := range run.Hosts {
		if host.Status.State != "up" {
			continue
		}

		var ipAddresses []string
		for _, address := range host.Addresses {
			if address.Addr != "" && (address.AddrType == "ipv4" || address.AddrType == "ipv6") {
				ipAddresses = append(ipAddresses, address.Addr)
			}
		}
		if len(ipAddresses) == 0 {
			continue
		}

		var hostSubnets []string
		for _, ip := range ipAddresses {
			if subnet, err := ipnet.ExtractSubnet(ip, 0); err == nil {
				subnetSet[subnet] = true
				hostSubnets = append(hostSubnets, subnet)
			}
		}

		var hostnames []string
		for _, hostname := range host.Hostnames {
			if hostname.Name != "" {
				hostnames = append(hostnames, hostname.Name)
			}
		}

		primaryIP := ipAddresses[0]
		results.Hosts = append(results.Hosts, models.Host{
			IPAddress:   primaryIP,
			Tag:         tag,
			DomainNames: hostnames,
			URIs:        []string{},
			Subnets:     hostSubnets,
		})

		deviceName := primaryIP
		if len(hostnames) > 0 {
			deviceName = hostnames[0]
		}
		for _, ip := range ipAddresses {
			name := deviceName
			if len(ipAddresses) > 1 {
				name = fmt.Sprintf("%s (%s)", deviceName, ip)
			}
			results.Devices = append(results.Devices, models.Device{Name: name, IPAddress: ip})
		}

		for _, ip := range ipAddresses {
			processPorts(host, ip, tag, &softwareVersions, &applications)
		}
	}

	subnets := make([]string, 0, len(subnetSet))
	for subnet := range subnetSet {
		subnets = append(subnets, subnet)
	}
	sort.Strings(subnets)
	for _, subnet := range subnets {
		results.Subnets = append(results.Subnets, models.Subnet{IPRange: subnet, Note: subnet})
	}

	results.SoftwareVersions = softwareVersions
	results.Applications = applications
	return results, nil
}

func processPorts(host nmapHost, ip string, tag []string, versions *[]models.SoftwareVersion, applications *[]models.Application) {
	for _, port := range host.Ports {
		if port.State.State != "open" || port.Service == nil {
			continue
		}
		service := port.Service

		if sv := softwareVersionFromService(service, ip, tag); sv != nil {
			*versions = append(*versions, *sv)
		}
		if service.Name != "" {
			protocol := port.Protocol
			if protocol == "" {
				protocol = "tcp"
			}
			*applications = append(*applications, models.Application{
				Name:   fmt.Sprintf("%s (port %s/%s)", service.Name, port.PortID, protocol),
				Device: ip,
			})
		}
	}
}

func softwareVersionFromService(service *nmapService, ip string, tag []string) *models.SoftwareVersion {
	cpeStr := serviceCPE(service)
	if cpeStr == "" {
		return nil
	}
	converted := ConvertCPEToVersion23(cpeStr)
	if converted == "" {
		return nil
	}
	return &models.SoftwareVersion{
		Version:     converted,
		Description: buildVersionDescription(service),
		IPAddresses: []string{ip},
		Tag:         tag,
	}
}

func serviceCPE(service *nmapService) string {
	if len(service.CPEs) > 0 && service.CPEs[0] != "" {
		return service.CPEs[0]
	}
	return service.CPEAttr
}

// buildVersionDescription renders "product version (extrainfo)", falling
// back to the service name when product and version are absent.
func buildVersionDescription(service *nmapService) string {
	var parts []string
	if service.Product != "" {
		parts = append(parts, service.Product)
	}
	if service.Version != "" {
		parts = append(parts, service.Version)
	}
	full := strings.Join(parts, " ")
	if service.ExtraInfo != "" {
		full += fmt.Sprintf(" (%s)", service.ExtraInfo)
	}
	full = strings.TrimSpace(full)
	if full == "" {
		return service.Name
	}
	return full
}

// ConvertCPEToVersion23 converts a legacy "cpe:/..." string into CPE 2.3
// form. CPEs without a version component produce an empty string: the CVE
// connector requires a version.
func ConvertCPEToVersion23(cpeStr string) string {
	parts := strings.Split(cpeStr, ":")
	if len(parts) < 2 {
		return ""
	}
	fields := append([]string{strings.TrimPrefix(parts[1], "/")}, parts[2:]...)
	if len(fields) < 4 || strings.TrimSpace(fields[3]) == "" {
		return ""
	}
	fields = append(fields[:4], "*", "*", "*", "*", "*", "*", "*")
	return "cpe:2.3:" + strings.Join(fields, ":")
}

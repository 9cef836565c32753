// Package identity supplies the station facts stamped into the rolling log
// header: station name, client version, OS version, license type, a
// hardware identifier and the configured server URL.
//
// Configured values always win; anything left empty is detected from the
// host each time the header is built.
package identity

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	ps "github.com/mitchellh/go-ps"

	"github.com/virinco/watsclient/internal/rollinglog"
)

// Info holds the header facts for one station.
type Info struct {
	StationName string `json:"machinename" yaml:"stationName"`
	Version     string `json:"watsversion" yaml:"version"`
	OSVersion   string `json:"osver" yaml:"osVersion"`
	LicenseType string `json:"lictype" yaml:"licenseType"`
	Identifier  string `json:"identifier" yaml:"identifier"`
	ServerURL   string `json:"serverurl" yaml:"serverUrl"`
}

// Header returns the facts as header fields in the client's key order.
func (i Info) Header() rollinglog.Header {
	return rollinglog.NewHeader(
		rollinglog.KeyMachineName, i.StationName,
		rollinglog.KeyVersion, i.Version,
		rollinglog.KeyOSVersion, i.OSVersion,
		rollinglog.KeyLicenseType, i.LicenseType,
		rollinglog.KeyIdentifier, i.Identifier,
		rollinglog.KeyServerURL, i.ServerURL,
	)
}

// merge fills the empty fields of i from other.
func (i Info) merge(other Info) Info {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Info{
		StationName: pick(i.StationName, other.StationName),
		Version:     pick(i.Version, other.Version),
		OSVersion:   pick(i.OSVersion, other.OSVersion),
		LicenseType: pick(i.LicenseType, other.LicenseType),
		Identifier:  pick(i.Identifier, other.Identifier),
		ServerURL:   pick(i.ServerURL, other.ServerURL),
	}
}

// Provider combines configured values with host detection.
type Provider struct {
	mu         sync.RWMutex
	configured Info
	detect     func() Info
}

// NewProvider creates a Provider over the configured values.
func NewProvider(configured Info) *Provider {
	return &Provider{configured: configured, detect: Detect}
}

// Update replaces the configured values, e.g. after the settings file changed.
func (p *Provider) Update(configured Info) {
	p.mu.Lock()
	p.configured = configured
	p.mu.Unlock()
}

// Current returns the configured values completed by detection.
func (p *Provider) Current() Info {
	p.mu.RLock()
	configured := p.configured
	p.mu.RUnlock()
	return configured.merge(p.detect())
}

// HeaderSource adapts the provider to the rolling log.
func (p *Provider) HeaderSource() rollinglog.HeaderSource {
	return func() rollinglog.Header { return p.Current().Header() }
}

// Detect reads what can be read from the host. License type and server URL
// are configuration only and stay empty.
func Detect() Info {
	station, _ := os.Hostname()
	return Info{
		StationName: station,
		OSVersion:   osVersion(),
		Identifier:  HardwareIdentifier(station),
	}
}

// HardwareIdentifier returns the MAC address of the first interface that is
// up, not a loopback, and has one. Stations without such an interface get a
// name-based UUID derived from the station name, so the value stays stable.
func HardwareIdentifier(station string) string {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, ifc := range ifaces {
			if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 || len(ifc.HardwareAddr) == 0 {
				continue
			}
			return ifc.HardwareAddr.String()
		}
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(station)).String()
}

// ProcessName returns the executable name of the current process.
func ProcessName() string {
	if p, err := ps.FindProcess(os.Getpid()); err == nil && p != nil {
		return p.Executable()
	}
	return filepath.Base(os.Args[0])
}

func fallbackOSVersion() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

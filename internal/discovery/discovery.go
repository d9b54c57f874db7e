// Package discovery advertises the control server over mDNS and finds other
// dashboards on the local network.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// DefaultService is the mDNS service type dashboards register under.
const DefaultService = "_dashd._tcp"

// Advertisement describes one dashboard.
type Advertisement struct {
	Instance string
	Service  string
	Domain   string
	Port     int
	Channels int
}

// TXT returns the TXT records published with the service.
func (a Advertisement) TXT() []string {
	return []string{
		fmt.Sprintf("channels=%d", a.Channels),
		"path=/control",
	}
}

// Advertiser publishes an Advertisement until Close.
type Advertiser struct {
	server *mdns.Server
}

// Advertise starts answering mDNS queries for ad.
func Advertise(ad Advertisement) (*Advertiser, error) {
	if ad.Service == "" {
		ad.Service = DefaultService
	}
	service, err := mdns.NewMDNSService(ad.Instance, ad.Service, ad.Domain, "", ad.Port, nil, ad.TXT())
	if err != nil {
		return nil, fmt.Errorf("failed to describe mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS responder: %w", err)
	}

	log.Info().
		Str("instance", ad.Instance).
		Str("service", ad.Service).
		Int("port", ad.Port).
		Msg("Advertising control server")

	return &Advertiser{server: server}, nil
}

// Close stops answering queries.
func (a *Advertiser) Close() error {
	return a.server.Shutdown()
}

// Board is a dashboard found on the network.
type Board struct {
	Name     string
	Addr     net.IP
	Port     int
	Channels string
}

// URL returns the control endpoint of b.
func (b Board) URL() string {
	return fmt.Sprintf("http://%s/control", net.JoinHostPort(b.Addr.String(), fmt.Sprint(b.Port)))
}

// Browse queries the network for dashboards until timeout or ctx is done.
// An empty service browses DefaultService.
func Browse(ctx context.Context, service, domain string, timeout time.Duration) ([]Board, error) {
	if service == "" {
		service = DefaultService
	}
	entries := make(chan *mdns.ServiceEntry, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(entries)
		errs <- mdns.Query(&mdns.QueryParam{
			Service:     service,
			Domain:      strings.TrimSuffix(domain, "."),
			Timeout:     timeout,
			Entries:     entries,
			DisableIPv6: true,
		})
	}()

	var boards []Board
	for {
		select {
		case <-ctx.Done():
			// Let the query finish without blocking on a full channel
			go func() {
				for range entries {
				}
			}()
			return boards, ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				return boards, <-errs
			}
			if b, ok := boardFromEntry(entry); ok {
				boards = append(boards, b)
			}
		}
	}
}

func boardFromEntry(entry *mdns.ServiceEntry) (Board, bool) {
	if entry == nil || entry.AddrV4 == nil {
		return Board{}, false
	}
	b := Board{
		Name: entry.Name,
		Addr: entry.AddrV4,
		Port: entry.Port,
	}
	for _, field := range entry.InfoFields {
		if v, ok := strings.CutPrefix(field, "channels="); ok {
			b.Channels = v
		}
	}
	return b, true
}

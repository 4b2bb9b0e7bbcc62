// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager defaults, TXT records and entry conversion
package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	config := Config{
		ServiceName: "Test Player",
		Port:        8928,
	}

	mgr := NewManager(config)
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.config.BrowseTimeout != 3*time.Second {
		t.Errorf("expected default browse timeout 3s, got %v", mgr.config.BrowseTimeout)
	}
	mgr.Stop()
}

func TestTXTRecords(t *testing.T) {
	mgr := NewManager(Config{TXT: []string{"version=0.3.0", "backend=fifo"}})

	txt := mgr.TXTRecords()
	want := []string{"path=/sdplay", "version=0.3.0", "backend=fifo"}
	if len(txt) != len(want) {
		t.Fatalf("expected %v, got %v", want, txt)
	}
	for i := range want {
		if txt[i] != want[i] {
			t.Errorf("record %d: expected %s, got %s", i, want[i], txt[i])
		}
	}
}

func TestEntryToPlayer(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "kitchen._sdplay._tcp.local.",
		AddrV4:     net.ParseIP("192.168.1.20"),
		Port:       8928,
		InfoFields: []string{"path=/sdplay", "backend=timer", "junk"},
	}

	p := entryToPlayer(entry)
	if p == nil {
		t.Fatal("expected player")
	}
	if p.Name != "kitchen" {
		t.Errorf("expected name kitchen, got %s", p.Name)
	}
	if p.Addr() != "192.168.1.20:8928" {
		t.Errorf("expected addr 192.168.1.20:8928, got %s", p.Addr())
	}
	if p.TXT["backend"] != "timer" || p.TXT["path"] != "/sdplay" {
		t.Errorf("unexpected TXT %v", p.TXT)
	}
	if _, ok := p.TXT["junk"]; ok {
		t.Error("expected field without = to be ignored")
	}

	if entryToPlayer(&mdns.ServiceEntry{Name: "v6only"}) != nil {
		t.Error("expected entry without IPv4 address to be ignored")
	}
}

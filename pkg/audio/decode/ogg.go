// ABOUTME: Ogg page framing performed directly on the stream window
// ABOUTME: Incomplete page headers stay unconsumed so the next refill carries them over
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	oggHeaderSize   = 27
	oggMaxSegments  = 255
	oggMaxPageBody  = oggMaxSegments * 255
	oggFlagContinue = 0x01
	oggFlagBOS      = 0x02
	oggFlagEOS      = 0x04
)

var oggCapture = []byte("OggS")

var (
	errOggCapture = errors.New("ogg: lost page sync")
	errOggCRC     = errors.New("ogg: page checksum mismatch")
	errOggVersion = errors.New("ogg: unsupported page version")
)

var oggCRCTable = func() [256]uint32 {
	var t [256]uint32
	for i := range t {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

func oggCRC(crc uint32, p []byte) uint32 {
	for _, b := range p {
		crc = crc<<8 ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}

// oggPageHeader is the fixed part of a page plus its segment table
type oggPageHeader struct {
	Flags    byte
	Granule  int64
	Serial   uint32
	Sequence uint32
	CRC      uint32
	Segments []byte
}

func (h oggPageHeader) bodySize() int {
	n := 0
	for _, seg := range h.Segments {
		n += int(seg)
	}
	return n
}

// oggPager splits the window into pages and pages into packets.
//
// A page header is consumed only once it is complete in the window; the
// body is consumed as it arrives. Packets of a page are delivered after the
// page checksum has been verified.
type oggPager struct {
	inBody  bool
	header  oggPageHeader
	segs    [oggMaxSegments]byte
	body    []byte
	want    int
	crc     uint32
	partial []byte
	synced  bool
	serial  uint32
	tracked bool

	// packet is called for each complete packet of the tracked logical stream
	packet func(p []byte, h *oggPageHeader) Flow
}

func newOggPager(packet func(p []byte, h *oggPageHeader) Flow) *oggPager {
	return &oggPager{
		body:    make([]byte, 0, oggMaxPageBody),
		partial: make([]byte, 0, oggMaxPageBody),
		synced:  true,
		packet:  packet,
	}
}

// step consumes as much of the window as it can.
// It returns needMore when the window holds no further complete unit.
func (p *oggPager) step(s *Stream) (needMore bool, flow Flow, err error) {
	if p.inBody {
		return p.stepBody(s)
	}
	return p.stepHeader(s)
}

func (p *oggPager) stepHeader(s *Stream) (bool, Flow, error) {
	rem := s.Remaining()
	if len(rem) < len(oggCapture) {
		return true, FlowContinue, nil
	}

	if !bytes.HasPrefix(rem, oggCapture) {
		idx := bytes.Index(rem[1:], oggCapture)
		if idx >= 0 {
			s.Advance(idx + 1)
		} else {
			// Keep a tail that might be the start of a split capture pattern
			s.Advance(len(rem) - (len(oggCapture) - 1))
		}
		if p.synced {
			p.synced = false
			return false, FlowContinue, errOggCapture
		}
		return false, FlowContinue, nil
	}

	if len(rem) < oggHeaderSize {
		return true, FlowContinue, nil
	}
	nseg := int(rem[26])
	if len(rem) < oggHeaderSize+nseg {
		return true, FlowContinue, nil
	}

	if rem[4] != 0 {
		s.Advance(1)
		p.synced = false
		return false, FlowContinue, fmt.Errorf("%w: %d", errOggVersion, rem[4])
	}

	p.synced = true
	p.header = oggPageHeader{
		Flags:    rem[5],
		Granule:  int64(binary.LittleEndian.Uint64(rem[6:14])),
		Serial:   binary.LittleEndian.Uint32(rem[14:18]),
		Sequence: binary.LittleEndian.Uint32(rem[18:22]),
		CRC:      binary.LittleEndian.Uint32(rem[22:26]),
	}
	copy(p.segs[:], rem[oggHeaderSize:oggHeaderSize+nseg])
	p.header.Segments = p.segs[:nseg]

	var zero [4]byte
	crc := oggCRC(0, rem[:22])
	crc = oggCRC(crc, zero[:])
	p.crc = oggCRC(crc, rem[26:oggHeaderSize+nseg])

	s.Advance(oggHeaderSize + nseg)
	p.body = p.body[:0]
	p.want = p.header.bodySize()
	p.inBody = true
	return false, FlowContinue, nil
}

func (p *oggPager) stepBody(s *Stream) (bool, Flow, error) {
	rem := s.Remaining()
	take := p.want - len(p.body)
	if take > len(rem) {
		take = len(rem)
	}
	p.body = append(p.body, rem[:take]...)
	p.crc = oggCRC(p.crc, rem[:take])
	s.Advance(take)

	if len(p.body) < p.want {
		return true, FlowContinue, nil
	}
	p.inBody = false

	if p.crc != p.header.CRC {
		p.partial = p.partial[:0]
		return false, FlowContinue, fmt.Errorf("%w: page %d", errOggCRC, p.header.Sequence)
	}

	h := &p.header
	if !p.tracked {
		if h.Flags&oggFlagBOS == 0 {
			return false, FlowContinue, nil
		}
		p.serial = h.Serial
		p.tracked = true
	}
	if h.Serial != p.serial {
		return false, FlowContinue, nil
	}

	if h.Flags&oggFlagContinue == 0 {
		p.partial = p.partial[:0]
	}

	off := 0
	for _, seg := range h.Segments {
		p.partial = append(p.partial, p.body[off:off+int(seg)]...)
		off += int(seg)
		if seg < 255 {
			flow := p.packet(p.partial, h)
			p.partial = p.partial[:0]
			if flow == FlowStop {
				return false, FlowStop, nil
			}
		}
	}

	if h.Flags&oggFlagEOS != 0 {
		p.tracked = false
	}
	return false, FlowContinue, nil
}

// run drives the pager, asking for input whenever the window is exhausted
func (p *oggPager) run(s *Stream, cb Callbacks) error {
	for {
		needMore, flow, err := p.step(s)
		if err != nil {
			if reportError(cb, s, err) == FlowStop {
				return nil
			}
		}
		if flow == FlowStop {
			return nil
		}
		if needMore {
			if cb.Input == nil || cb.Input(s) != FlowContinue {
				return nil
			}
			if len(s.Remaining()) == 0 {
				return nil
			}
		}
	}
}

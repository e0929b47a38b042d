package mpegts

import (
	"github.com/tscast/tscast/pkg/bits"
)

// Packet - one fixed size transport packet
type Packet struct {
	PUSI       bool // payload unit start indicator
	PID        uint16
	Counter    byte // continuity counter, mod 16 per PID
	Adaptation *Adaptation
	Payload    []byte
}

// Adaptation - optional per-packet extension for clock reference,
// random access signaling and stuffing
type Adaptation struct {
	Discontinuity bool
	RandomAccess  bool
	HasPCR        bool
	PCR           uint64 // 27MHz
}

const maxPayload = PacketSize - 4

// Size of the serialized adaptation field including the length byte
func (a *Adaptation) Size() int {
	if a.HasPCR {
		return 2 + 6
	}
	return 2
}

// MaxPayload - payload bytes that fit next to this adaptation field
func (a *Adaptation) MaxPayload() int {
	return maxPayload - a.Size()
}

// MarshalTo - serialize exactly PacketSize bytes; payload must fit
// (188 - 4 bytes header - adaptation field when set), short payloads
// are covered with adaptation field stuffing
func (p *Packet) MarshalTo(wr *bits.Writer) {
	// total adaptation field size, including the length byte
	afSize := maxPayload - len(p.Payload)
	if afSize == 0 && p.Adaptation != nil {
		afSize = p.Adaptation.Size() // caller kept room for it
	}

	wr.WriteByte(SyncByte)

	wr.WriteBit(0) // Transport error indicator (TEI)
	if p.PUSI {
		wr.WriteBit(1) // Payload unit start indicator (PUSI)
	} else {
		wr.WriteBit(0)
	}
	wr.WriteBit(0)            // Transport priority
	wr.WriteBits16(p.PID, 13) // PID

	wr.WriteBits8(0, 2) // Transport scrambling control (TSC)
	if afSize > 0 {
		wr.WriteBit(1) // Adaptation field
	} else {
		wr.WriteBit(0)
	}
	wr.WriteBit(1)                  // Payload
	wr.WriteBits8(p.Counter&0xF, 4) // Continuity counter

	if afSize > 0 {
		wr.WriteByte(byte(afSize - 1)) // Adaptation field length (excludes itself)

		if afSize > 1 {
			a := p.Adaptation
			if a == nil {
				a = &Adaptation{} // stuffing only
			}

			if a.Discontinuity {
				wr.WriteBit(1) // Discontinuity indicator
			} else {
				wr.WriteBit(0)
			}
			if a.RandomAccess {
				wr.WriteBit(1) // Random access indicator
			} else {
				wr.WriteBit(0)
			}
			wr.WriteBit(0) // ES priority indicator
			if a.HasPCR {
				wr.WriteBit(1) // PCR flag
			} else {
				wr.WriteBit(0)
			}
			wr.WriteBits8(0, 4) // OPCR, splicing point, private data, extension

			stuffing := afSize - 2
			if a.HasPCR {
				WritePCR(wr, a.PCR)
				stuffing -= 6
			}

			for i := 0; i < stuffing; i++ {
				wr.WriteByte(0xFF)
			}
		}
	}

	wr.WriteBytes(p.Payload...)
}

func (p *Packet) Marshal() []byte {
	wr := bits.NewWriter(make([]byte, 0, PacketSize))
	p.MarshalTo(wr)
	return wr.Bytes()
}

// ParsePacket - tolerant parse of one 188 byte packet: malformed
// fields come back zero valued instead of raising errors
func ParsePacket(b []byte) *Packet {
	rd := bits.NewReader(b)

	if rd.ReadByte() != SyncByte {
		return nil
	}

	p := &Packet{}

	_ = rd.ReadBit()            // Transport error indicator (TEI)
	p.PUSI = rd.ReadBit() != 0  // Payload unit start indicator (PUSI)
	_ = rd.ReadBit()            // Transport priority
	p.PID = rd.ReadBits16(13)   // PID
	_ = rd.ReadBits(2)          // Transport scrambling control (TSC)
	af := rd.ReadBit()          // Adaptation field
	pf := rd.ReadBit()          // Payload
	p.Counter = rd.ReadBits8(4) // Continuity counter

	if af != 0 {
		size := int(rd.ReadByte())
		if size > PacketSize-6 {
			return p // wrong adaptation size, keep header fields only
		}

		if left := rd.Left(); size > 0 && len(left) > 0 {
			a := &Adaptation{
				Discontinuity: left[0]&0x80 != 0,
				RandomAccess:  left[0]&0x40 != 0,
				HasPCR:        left[0]&0x10 != 0,
			}
			if a.HasPCR && size >= 7 && len(left) >= 7 {
				a.PCR = ParsePCR(left[1:])
			}
			p.Adaptation = a
		} else {
			p.Adaptation = &Adaptation{}
		}

		rd.Skip(size)
	}

	if pf != 0 && !rd.EOF {
		p.Payload = rd.Left()
	}

	return p
}

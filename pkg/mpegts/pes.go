package mpegts

import (
	"github.com/tscast/tscast/pkg/bits"
)

// PES - one access unit wrapped for TS carriage
type PES struct {
	StreamID     byte   // 0xE0 video, 0xC0 audio
	PTS          uint64 // 90kHz
	DTS          uint64 // 90kHz, used when HasDTS
	HasDTS       bool
	RandomAccess bool // sync sample, sets the random access indicator
	HasPCR       bool // clock reference on the first packet
	PCR          uint64
	Payload      []byte // Annex-B video or ADTS audio
}

const pesHeaderSize = 6 + 3 // start code + stream id + length + flags

// Header - PES header: start code prefix, stream id, packet length,
// flags and timestamps
func (p *PES) Header() []byte {
	wr := bits.NewWriter(make([]byte, 0, pesHeaderSize+10))

	wr.WriteUint24(0x000001) // Packet start code prefix
	wr.WriteByte(p.StreamID) // Stream ID

	optSize := 5
	if p.HasDTS {
		optSize += 5
	}

	// PES packet length (zero when too big, OK for video)
	if size := 3 + optSize + len(p.Payload); size <= 0xFFFF {
		wr.WriteUint16(uint16(size))
	} else {
		wr.WriteUint16(0)
	}

	wr.WriteByte(0x80) // Marker bits
	if p.HasDTS {
		wr.WriteByte(0xC0) // PTS + DTS indicators
	} else {
		wr.WriteByte(0x80) // PTS indicator
	}
	wr.WriteByte(byte(optSize)) // PES header data length

	if p.HasDTS {
		WriteTime(wr, timeFirstTS, p.PTS)
		WriteTime(wr, timeOnlyDTS, p.DTS)
	} else {
		WriteTime(wr, timeOnlyPTS, p.PTS)
	}

	return wr.Bytes()
}

// PackTo - split header+payload into 188 byte packets on one PID;
// the first packet carries PUSI plus optional PCR and random access
// indicator, the final packet is stuffed via the adaptation field
func (p *PES) PackTo(wr *bits.Writer, pid uint16, counter *byte) {
	payload := p.Header()
	payload = append(payload, p.Payload...)

	first := true
	for len(payload) > 0 {
		pkt := &Packet{
			PUSI:    first,
			PID:     pid,
			Counter: *counter,
		}

		max := maxPayload

		if first && (p.HasPCR || p.RandomAccess) {
			pkt.Adaptation = &Adaptation{
				RandomAccess: p.RandomAccess,
				HasPCR:       p.HasPCR,
				PCR:          p.PCR,
			}
			max = pkt.Adaptation.MaxPayload()
		}

		if len(payload) < max {
			max = len(payload)
		}

		pkt.Payload = payload[:max]
		pkt.MarshalTo(wr)

		payload = payload[max:]
		*counter = (*counter + 1) & 0xF
		first = false
	}
}

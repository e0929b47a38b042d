package mpegts

import (
	"github.com/tscast/tscast/pkg/bits"
)

// PAT - Program Association Table, single program only
type PAT struct {
	TransportStreamID uint16
	Version           byte
	ProgramNumber     uint16
	PMTPID            uint16
}

// ElementaryStream - one PMT stream descriptor
type ElementaryStream struct {
	StreamType byte
	PID        uint16
}

// PMT - Program Map Table of the single program
type PMT struct {
	ProgramNumber uint16
	Version       byte
	PCRPID        uint16
	Streams       []ElementaryStream
}

const (
	tableIDPAT = 0x00
	tableIDPMT = 0x02
)

// Marshal - full section from table_id through CRC32
func (t *PAT) Marshal() []byte {
	wr := bits.NewWriter(nil)

	writeSectionHeader(wr, tableIDPAT, t.TransportStreamID, t.Version, 4)

	wr.WriteUint16(t.ProgramNumber)
	wr.WriteBits8(0b111, 3)      // Reserved bits (all to 1)
	wr.WriteBits16(t.PMTPID, 13) // Program map PID

	return writeSectionCRC(wr)
}

// Marshal - full section from table_id through CRC32
func (t *PMT) Marshal() []byte {
	wr := bits.NewWriter(nil)

	writeSectionHeader(wr, tableIDPMT, t.ProgramNumber, t.Version, 4+uint16(len(t.Streams))*5)

	wr.WriteBits8(0b111, 3)      // Reserved bits (all to 1)
	wr.WriteBits16(t.PCRPID, 13) // PCR PID

	wr.WriteBits8(0b1111, 4) // Reserved bits (all to 1)
	wr.WriteBits8(0, 2)      // Program info length unused bits (all to 0)
	wr.WriteBits16(0, 10)    // Program info length

	for _, es := range t.Streams {
		wr.WriteByte(es.StreamType) // Stream type
		wr.WriteBits8(0b111, 3)     // Reserved bits (all to 1)
		wr.WriteBits16(es.PID, 13)  // Elementary PID
		wr.WriteBits8(0b1111, 4)    // Reserved bits (all to 1)
		wr.WriteBits8(0, 2)         // ES Info length unused bits (all to 0)
		wr.WriteBits16(0, 10)       // ES Info length
	}

	return writeSectionCRC(wr)
}

// size - section bytes after the header and before the CRC
func writeSectionHeader(wr *bits.Writer, tableID byte, extID uint16, version byte, size uint16) {
	wr.WriteByte(tableID) // Table ID

	wr.WriteBit(1)               // Section syntax indicator
	wr.WriteBit(0)               // Private bit
	wr.WriteBits8(0b11, 2)       // Reserved bits (all to 1)
	wr.WriteBits8(0, 2)          // Section length unused bits (all to 0)
	wr.WriteBits16(5+size+4, 10) // Section length (5 bytes below + content + CRC32)

	wr.WriteUint16(extID)          // Table ID extension
	wr.WriteBits8(0b11, 2)         // Reserved bits (all to 1)
	wr.WriteBits8(version&0x1F, 5) // Version number
	wr.WriteBit(1)                 // Current/next indicator

	wr.WriteByte(0) // Section number
	wr.WriteByte(0) // Last section number
}

func writeSectionCRC(wr *bits.Writer) []byte {
	crc := Checksum(wr.Bytes())
	wr.WriteUint32(crc)
	return wr.Bytes()
}

// PackSection - split one PSI section into 188 byte packets on one
// PID: first packet carries PUSI and a zero pointer_field, every
// packet is filled to size with raw 0xFF after the section end
func PackSection(wr *bits.Writer, pid uint16, counter *byte, section []byte) {
	payload := make([]byte, 0, 1+len(section))
	payload = append(payload, 0) // Pointer field
	payload = append(payload, section...)

	pusi := true
	for len(payload) > 0 {
		n := len(payload)
		if n > maxPayload {
			n = maxPayload
		}

		chunk := payload[:n]

		// PSI padding is raw 0xFF after the section end, not an
		// adaptation field
		if n < maxPayload {
			chunk = make([]byte, maxPayload)
			copy(chunk, payload[:n])
			for j := n; j < maxPayload; j++ {
				chunk[j] = 0xFF
			}
		}

		pkt := &Packet{
			PUSI:    pusi,
			PID:     pid,
			Counter: *counter,
			Payload: chunk,
		}
		pkt.MarshalTo(wr)

		payload = payload[n:]
		*counter = (*counter + 1) & 0xF
		pusi = false
	}
}

// ParsePAT - tolerant parse of a PAT section (skips the pointer
// field when the buffer starts with a packet payload)
func ParsePAT(section []byte) *PAT {
	rd := sectionReader(section, tableIDPAT)
	if rd == nil {
		return nil
	}

	t := &PAT{}

	_ = rd.ReadByte()   // Table ID
	_ = rd.ReadBits(6)  // Section syntax, private, reserved, unused
	_ = rd.ReadBits(10) // Section length
	t.TransportStreamID = rd.ReadUint16()
	_ = rd.ReadBits(2)          // Reserved bits
	t.Version = rd.ReadBits8(5) // Version number
	_ = rd.ReadBit()            // Current/next indicator
	_ = rd.ReadByte()           // Section number
	_ = rd.ReadByte()           // Last section number

	t.ProgramNumber = rd.ReadUint16()
	_ = rd.ReadBits(3) // Reserved bits
	t.PMTPID = rd.ReadBits16(13)

	return t
}

// ParsePMT - tolerant parse of a PMT section
func ParsePMT(section []byte) *PMT {
	rd := sectionReader(section, tableIDPMT)
	if rd == nil {
		return nil
	}

	t := &PMT{}

	_ = rd.ReadByte()         // Table ID
	_ = rd.ReadBits(6)        // Section syntax, private, reserved, unused
	size := rd.ReadBits16(10) // Section length
	t.ProgramNumber = rd.ReadUint16()
	_ = rd.ReadBits(2)          // Reserved bits
	t.Version = rd.ReadBits8(5) // Version number
	_ = rd.ReadBit()            // Current/next indicator
	_ = rd.ReadByte()           // Section number
	_ = rd.ReadByte()           // Last section number

	_ = rd.ReadBits(3) // Reserved bits
	t.PCRPID = rd.ReadBits16(13)
	_ = rd.ReadBits(6)              // Reserved + unused bits
	infoSize := rd.ReadBits16(10)   // Program info length
	_ = rd.ReadBytes(int(infoSize)) // Program descriptors

	// section bytes left before CRC: size counts from after the
	// section length field (5 header bytes + body + 4 CRC)
	left := int(size) - 5 - 4 - 4 - int(infoSize)
	for left >= 5 && !rd.EOF {
		var es ElementaryStream
		es.StreamType = rd.ReadByte()
		_ = rd.ReadBits(3) // Reserved bits
		es.PID = rd.ReadBits16(13)
		_ = rd.ReadBits(6)            // Reserved + unused bits
		esInfo := rd.ReadBits16(10)   // ES Info length
		_ = rd.ReadBytes(int(esInfo)) // ES descriptors

		t.Streams = append(t.Streams, es)
		left -= 5 + int(esInfo)
	}

	return t
}

func sectionReader(b []byte, tableID byte) *bits.Reader {
	// packet payload starts with a pointer field
	if len(b) > 1 && b[0] == 0 && b[1] == tableID {
		b = b[1:]
	}
	if len(b) == 0 || b[0] != tableID {
		return nil
	}
	return bits.NewReader(b)
}

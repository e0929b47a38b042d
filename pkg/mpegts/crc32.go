package mpegts

// MPEG-2 CRC32 (poly 0x04C11DB7, MSB-first, init 0xFFFFFFFF, no final XOR).
// Not the reflected IEEE variant from hash/crc32.
var crc32Table [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		crc32Table[i] = crc
	}
}

func Checksum(b []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, i := range b {
		crc = (crc << 8) ^ crc32Table[byte(crc>>24)^i]
	}
	return crc
}

// ValidChecksum - CRC over section bytes including the trailing
// CRC field comes out zero for a valid section
func ValidChecksum(b []byte) bool {
	return len(b) >= 4 && Checksum(b) == 0
}

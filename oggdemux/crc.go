package oggdemux

// crcTable implements the Ogg variant of CRC-32: polynomial 0x04C11DB7,
// MSB-first, initial value 0, not reflected. This does not match either
// table Go's standard hash/crc32 package exposes (IEEE and Castagnoli
// are both the reflected/bit-mirrored convention), and no library in the
// example pack implements the non-reflected Ogg variant either (the
// closest candidate, dsnet/compress, only covers DEFLATE/BZip2/brotli
// checksums) — hence a small hand-rolled table, built once at package
// init, computed directly from the polynomial spec.md §4.10 names.
var crcTable [256]uint32

const crcPolynomial = 0x04c11db7

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for bit := 0; bit < 8; bit++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// crc32Ogg computes the non-reflected, MSB-first CRC-32 over data with
// the given running value (pass 0 to start a new computation).
func crc32Ogg(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

package processing

import (
	"encoding/binary"
	"io"
)

const (
	markerSOI  = 0xD8
	markerAPP1 = 0xE1
	markerSOS  = 0xDA
	markerEOI  = 0xD9

	tagOrientation = 0x0112
	typeShort      = 3
)

// ReadOrientation returns the EXIF orientation tag (1-8) of a JPEG stream.
// ok is false for non-JPEG input, a missing tag or an out of range value.
func ReadOrientation(r io.ReadSeeker) (uint8, bool) {
	var soi [2]byte
	if _, err := io.ReadFull(r, soi[:]); err != nil || soi[0] != 0xFF || soi[1] != markerSOI {
		return 0, false
	}

	for {
		var marker [2]byte
		if _, err := io.ReadFull(r, marker[:]); err != nil || marker[0] != 0xFF {
			return 0, false
		}
		// fill bytes
		for marker[1] == 0xFF {
			if _, err := io.ReadFull(r, marker[1:]); err != nil {
				return 0, false
			}
		}
		if marker[1] == markerSOS || marker[1] == markerEOI {
			return 0, false
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return 0, false
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf[:])) - 2
		if segLen < 0 {
			return 0, false
		}

		if marker[1] == markerAPP1 {
			seg := make([]byte, segLen)
			if _, err := io.ReadFull(r, seg); err != nil {
				return 0, false
			}
			if len(seg) >= 6 && string(seg[:6]) == "Exif\x00\x00" {
				return tiffOrientation(seg[6:])
			}
			continue
		}

		if _, err := r.Seek(int64(segLen), io.SeekCurrent); err != nil {
			return 0, false
		}
	}
}

// tiffOrientation scans IFD0 of a TIFF header for the orientation tag
func tiffOrientation(tiff []byte) (uint8, bool) {
	if len(tiff) < 8 {
		return 0, false
	}
	var bo binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return 0, false
	}
	if bo.Uint16(tiff[2:4]) != 42 {
		return 0, false
	}

	ifd := int(bo.Uint32(tiff[4:8]))
	if ifd < 8 || ifd+2 > len(tiff) {
		return 0, false
	}
	count := int(bo.Uint16(tiff[ifd : ifd+2]))
	for i := 0; i < count; i++ {
		off := ifd + 2 + i*12
		if off+12 > len(tiff) {
			break
		}
		if bo.Uint16(tiff[off:off+2]) != tagOrientation {
			continue
		}
		if bo.Uint16(tiff[off+2:off+4]) != typeShort {
			return 0, false
		}
		v := bo.Uint16(tiff[off+8 : off+10])
		if v < 1 || v > 8 {
			return 0, false
		}
		return uint8(v), true
	}
	return 0, false
}

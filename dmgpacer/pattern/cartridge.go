package pattern

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const titleLength = 16

const (
	entryPointAddress      = 0x100
	logoAddress            = 0x104
	titleAddress           = 0x134
	cgbFlagAddress         = 0x143
	cartridgeTypeAddress   = 0x147
	romSizeAddress         = 0x148
	ramSizeAddress         = 0x149
	versionNumberAddress   = 0x14C
	headerChecksumAddress  = 0x14D
	globalChecksumAddress  = 0x14E
	headerEnd              = 0x150
	biosSize               = 0x100
	minROMBanks            = 2
	romBankSize            = 0x4000
	maxROMSizeCode         = 0x08
	cgbFlagMask            = 0x80
	titleLengthWithCGBFlag = 15
)

var (
	ErrROMTooSmall    = errors.New("rom is smaller than the cartridge header")
	ErrBadLogo        = errors.New("nintendo logo mismatch")
	ErrHeaderChecksum = errors.New("header checksum mismatch")
	ErrTruncated      = errors.New("rom is shorter than its header declares")
	ErrBadBIOS        = errors.New("boot rom must be exactly 256 bytes")
)

// nintendoLogo is the bitmap every licensed cartridge carries at 0x104. The
// boot ROM refuses to start when it does not match.
var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83,
	0x00, 0x0C, 0x00, 0x0D, 0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99, 0xBB, 0xBB, 0x67, 0x63,
	0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header is the parsed cartridge header.
type Header struct {
	Title          string
	CGB            bool
	CartType       uint8
	ROMSizeCode    uint8
	RAMSizeCode    uint8
	Version        uint8
	HeaderChecksum uint8
	GlobalChecksum uint16
}

// ROMSize returns the image size declared by the header, in bytes.
func (h *Header) ROMSize() int {
	return minROMBanks * romBankSize << h.ROMSizeCode
}

// ParseHeader validates the logo and header checksum of rom and reads the
// cartridge metadata.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd {
		return nil, fmt.Errorf("%w: %d bytes", ErrROMTooSmall, len(rom))
	}

	if [48]byte(rom[logoAddress:logoAddress+len(nintendoLogo)]) != nintendoLogo {
		return nil, ErrBadLogo
	}

	expected := rom[headerChecksumAddress]
	if actual := HeaderChecksum(rom); actual != expected {
		return nil, fmt.Errorf("%w: header says 0x%02X, computed 0x%02X", ErrHeaderChecksum, expected, actual)
	}

	h := &Header{
		CGB:            rom[cgbFlagAddress]&cgbFlagMask != 0,
		CartType:       rom[cartridgeTypeAddress],
		ROMSizeCode:    rom[romSizeAddress],
		RAMSizeCode:    rom[ramSizeAddress],
		Version:        rom[versionNumberAddress],
		HeaderChecksum: expected,
		GlobalChecksum: uint16(rom[globalChecksumAddress])<<8 | uint16(rom[globalChecksumAddress+1]),
	}

	titleBytes := rom[titleAddress : titleAddress+titleLength]
	if h.CGB {
		titleBytes = titleBytes[:titleLengthWithCGBFlag]
	}
	h.Title = cleanTitle(titleBytes)

	if h.ROMSizeCode <= maxROMSizeCode && len(rom) < h.ROMSize() {
		return nil, fmt.Errorf("%w: header declares %d bytes, got %d", ErrTruncated, h.ROMSize(), len(rom))
	}

	return h, nil
}

// HeaderChecksum computes the checksum the boot ROM verifies over 0x134-0x14C.
func HeaderChecksum(rom []byte) uint8 {
	var sum uint8
	for _, b := range rom[titleAddress:headerChecksumAddress] {
		sum = sum - b - 1
	}
	return sum
}

// cleanTitle turns the raw title bytes into something printable. NUL padding
// becomes spaces and other control bytes become '?'.
func cleanTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))
	for _, b := range titleBytes {
		r := rune(b)
		if r == 0 {
			r = ' '
		} else if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}

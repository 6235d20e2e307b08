package pattern

// BuildROM returns a minimal cartridge image with a valid header: the
// Nintendo logo, the given title, a ROM-only cartridge type and a correct
// header checksum. The code area is filled with NOPs. sizeCode follows the
// header encoding, 32KiB << sizeCode.
func BuildROM(title string, sizeCode uint8) []byte {
	rom := make([]byte, minROMBanks*romBankSize<<sizeCode)

	// NOP; JP 0x0150
	copy(rom[entryPointAddress:], []byte{0x00, 0xC3, 0x50, 0x01})
	copy(rom[logoAddress:], nintendoLogo[:])

	if len(title) > titleLength {
		title = title[:titleLength]
	}
	copy(rom[titleAddress:], title)
	rom[romSizeAddress] = sizeCode
	rom[headerChecksumAddress] = HeaderChecksum(rom)
	return rom
}

// Package romload reads cartridge and boot ROM images, either raw or packed
// in a ZIP, 7z, gzip, tar.gz or RAR archive.
package romload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNoROMFile         = errors.New("no ROM file found in archive")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds maximum size limit")
)

// MaxSize is the largest image accepted, MBC5 tops out at 8MiB.
const MaxSize = 8 * 1024 * 1024

var (
	// CartridgeExtensions are the file names picked out of archives for --rom.
	CartridgeExtensions = []string{".gb", ".gbc", ".sgb"}

	// BIOSExtensions are the file names picked out of archives for --bios.
	BIOSExtensions = []string{".bin", ".rom", ".boot"}
)

var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06}
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21}
)

// Format is the container an image was found in.
type Format int

const (
	FormatUnknown Format = iota
	FormatRaw
	FormatZIP
	Format7z
	FormatGzip
	FormatTarGz
	FormatRAR
)

func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatZIP:
		return "zip"
	case Format7z:
		return "7z"
	case FormatGzip:
		return "gzip"
	case FormatTarGz:
		return "tar.gz"
	case FormatRAR:
		return "rar"
	default:
		return "unknown"
	}
}

// Image is a loaded ROM.
type Image struct {
	Data   []byte
	Name   string // base name of the file inside the container
	Format Format
}

// Load opens path and returns the first image matching extensions.
func Load(path string, extensions []string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return Read(f, info.Size(), filepath.Base(path), extensions)
}

// Read is Load for an already open image. name is used for format
// detection when the magic bytes are inconclusive.
func Read(r io.ReaderAt, size int64, name string, extensions []string) (*Image, error) {
	header := make([]byte, 16)
	n, err := r.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}

	format := detectFormat(header[:n], name, extensions)
	var ex extractor
	switch format {
	case FormatRaw:
		data, err := limitedRead(io.NewSectionReader(r, 0, size))
		if err != nil {
			return nil, fmt.Errorf("failed to read ROM: %w", err)
		}
		return &Image{Data: data, Name: name, Format: format}, nil
	case FormatZIP:
		ex = extractZIP
	case Format7z:
		ex = extract7z
	case FormatGzip, FormatTarGz:
		ex = extractGzip
	case FormatRAR:
		ex = extractRAR
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	img, err := ex(r, size, name, extensions)
	if err != nil {
		return nil, err
	}
	if img.Format == FormatUnknown {
		img.Format = format
	}
	return img, nil
}

// extractor pulls the first matching image out of an archive.
type extractor func(r io.ReaderAt, size int64, name string, extensions []string) (*Image, error)

func detectFormat(header []byte, name string, extensions []string) Format {
	switch {
	case bytes.HasPrefix(header, magicZIP), bytes.HasPrefix(header, magicZIPEnd):
		return FormatZIP
	case bytes.HasPrefix(header, magicRAR):
		return FormatRAR
	case bytes.HasPrefix(header, magic7z):
		return Format7z
	case bytes.HasPrefix(header, magicGzip):
		if isTarGz(name) {
			return FormatTarGz
		}
		return FormatGzip
	}

	lower := strings.ToLower(name)
	switch {
	case isTarGz(lower):
		return FormatTarGz
	case strings.HasSuffix(lower, ".zip"):
		return FormatZIP
	case strings.HasSuffix(lower, ".7z"):
		return Format7z
	case strings.HasSuffix(lower, ".gz"):
		return FormatGzip
	case strings.HasSuffix(lower, ".rar"):
		return FormatRAR
	}

	if matchesExtension(name, extensions) {
		return FormatRaw
	}
	return FormatUnknown
}

func isTarGz(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz")
}

func matchesExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func limitedRead(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

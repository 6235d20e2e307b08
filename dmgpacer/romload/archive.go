package romload

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"
)

// archiveFile is the subset of zip.File and sevenzip.File we need.
type archiveFile interface {
	Open() (io.ReadCloser, error)
	FileInfo() fs.FileInfo
}

func firstMatch[F archiveFile](files []F, extensions []string) (*Image, error) {
	for _, f := range files {
		info := f.FileInfo()
		if info.IsDir() || !matchesExtension(info.Name(), extensions) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in archive: %w", info.Name(), err)
		}
		data, err := limitedRead(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", info.Name(), err)
		}
		return &Image{Data: data, Name: info.Name()}, nil
	}
	return nil, ErrNoROMFile
}

func extractZIP(r io.ReaderAt, size int64, _ string, extensions []string) (*Image, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	return firstMatch(zr.File, extensions)
}

func extract7z(r io.ReaderAt, size int64, _ string, extensions []string) (*Image, error) {
	sr, err := sevenzip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z: %w", err)
	}
	return firstMatch(sr.File, extensions)
}

func extractRAR(r io.ReaderAt, size int64, _ string, extensions []string) (*Image, error) {
	rr, err := rardecode.NewReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("failed to open rar: %w", err)
	}

	for {
		header, err := rr.Next()
		if err == io.EOF {
			return nil, ErrNoROMFile
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rar entry: %w", err)
		}
		if header.IsDir || !matchesExtension(header.Name, extensions) {
			continue
		}

		data, err := limitedRead(rr)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		return &Image{Data: data, Name: filepath.Base(header.Name)}, nil
	}
}

// extractGzip handles both a single gzipped image and a tarball.
func extractGzip(r io.ReaderAt, size int64, name string, extensions []string) (*Image, error) {
	gr, err := gzip.NewReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	if isTarGz(name) {
		img, err := extractTar(gr, extensions)
		if err != nil {
			return nil, err
		}
		img.Format = FormatTarGz
		return img, nil
	}

	data, err := limitedRead(gr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress gzip: %w", err)
	}
	inner := name
	if strings.HasSuffix(strings.ToLower(inner), ".gz") {
		inner = inner[:len(inner)-len(".gz")]
	}
	return &Image{Data: data, Name: inner, Format: FormatGzip}, nil
}

func extractTar(r io.Reader, extensions []string) (*Image, error) {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil, ErrNoROMFile
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !matchesExtension(header.Name, extensions) {
			continue
		}

		data, err := limitedRead(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from tar: %w", header.Name, err)
		}
		return &Image{Data: data, Name: filepath.Base(header.Name)}, nil
	}
}

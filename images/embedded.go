// Package images holds the ready-made Thomson disk images offered by
// the format command.
package images

import (
	"bytes"
	"compress/gzip"
	_ "embed"
	"fmt"
	"io"
	"sort"
)

//go:embed blank40x1.fd.gz
var blank40x1Gz []byte

//go:embed blank80x2.fd.gz
var blank80x2Gz []byte

// BASIC DOS layout: directory track 20, sector 2 holds the block
// allocation table, sectors 3 to 16 the directory.
//
//go:embed dos40x1.fd.gz
var dos40x1Gz []byte

//go:embed dos80x1.fd.gz
var dos80x1Gz []byte

//go:embed dos80x2.fd.gz
var dos80x2Gz []byte

var imageMap = map[string][]byte{
	"blank40x1.fd.gz": blank40x1Gz,
	"blank80x2.fd.gz": blank80x2Gz,
	"dos40x1.fd.gz":   dos40x1Gz,
	"dos80x1.fd.gz":   dos80x1Gz,
	"dos80x2.fd.gz":   dos80x2Gz,
}

// Names lists the embedded files without the .gz suffix.
func Names() []string {
	var names []string
	for name := range imageMap {
		names = append(names, name[:len(name)-len(".gz")])
	}
	sort.Strings(names)
	return names
}

// GetImage retrieves and decompresses an embedded image file.
// The filename parameter should be the base filename as referenced in config
// (e.g., "dos80x2.fd"), and this function will automatically append ".gz"
// to look up the embedded compressed file.
func GetImage(filename string) ([]byte, error) {
	gzFilename := filename + ".gz"

	compressedData, ok := imageMap[gzFilename]
	if !ok {
		return nil, fmt.Errorf("embedded image not found: %s (looked for %s)", filename, gzFilename)
	}

	gzReader, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", filename, err)
	}
	defer gzReader.Close()

	decompressed, err := io.ReadAll(gzReader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", filename, err)
	}

	return decompressed, nil
}

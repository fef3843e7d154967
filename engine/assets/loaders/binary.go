package loaders

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4"
)

// BlobLoader reads raw vertex/index buffers. Files ending in .lz4 are
// decompressed on the fly.
type BlobLoader struct{}

func (bl *BlobLoader) Load(path string, params Params) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if filepath.Ext(path) == ".lz4" {
		r = lz4.NewReader(r)
	}

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return &Resource{
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

// CompressBlob writes data as an lz4 frame. Used by tooling and tests that
// produce .lz4 buffers.
func CompressBlob(w io.Writer, data []byte) error {
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

// Package archive handles the deflate zip container: building new
// archives and safely extracting members from existing ones.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// Writer builds one archive. The content is written to a temp file in
// the destination directory and renamed into place on Close, so from
// the outside the archive either exists fully written or not at all.
type Writer struct {
	finalPath string
	tmpPath   string
	f         *os.File
	zw        *zip.Writer
	done      bool
}

// NewWriter creates an archive writer targeting finalPath, compressing
// with deflate at the given level (0-9; 0 stores bytes uncompressed).
func NewWriter(finalPath string, level int) (*Writer, error) {
	if level < flate.NoCompression || level > flate.BestCompression {
		level = flate.DefaultCompression
	}

	f, err := os.CreateTemp(filepath.Dir(finalPath), "driveback-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp archive: %w", err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	return &Writer{finalPath: finalPath, tmpPath: f.Name(), f: f, zw: zw}, nil
}

// WriteFile adds one local file under the given archive-relative name
// (forward-slash form). The copy goes through buf.
func (w *Writer) WriteFile(absSrcPath, relPathKey string, buf []byte) error {
	info, err := os.Lstat(absSrcPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", absSrcPath, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create zip header for %s: %w", relPathKey, err)
	}
	header.Name = relPathKey
	header.Method = zip.Deflate

	if info.Mode()&os.ModeSymlink != 0 {
		// Symlinks are stored, not compressed; the body is the link target.
		header.Method = zip.Store
		linkTarget, err := os.Readlink(absSrcPath)
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w", absSrcPath, err)
		}
		mw, err := w.zw.CreateHeader(header)
		if err != nil {
			return err
		}
		_, err = mw.Write([]byte(linkTarget))
		return err
	}

	src, err := os.Open(absSrcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", absSrcPath, err)
	}
	defer src.Close()

	mw, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write zip header for %s: %w", relPathKey, err)
	}
	if _, err := io.CopyBuffer(mw, src, buf); err != nil {
		return fmt.Errorf("failed to compress %s: %w", relPathKey, err)
	}
	return nil
}

// Close flushes the archive and atomically renames it into place.
func (w *Writer) Close() (retErr error) {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.zw.Close(); err != nil {
		retErr = fmt.Errorf("zip writer close failed: %w", err)
	}
	if err := w.f.Close(); err != nil && retErr == nil {
		retErr = fmt.Errorf("failed to close temp archive: %w", err)
	}
	if retErr != nil {
		os.Remove(w.tmpPath)
		return retErr
	}

	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("failed to rename temp archive to final path: %w", err)
	}
	return nil
}

// Abort discards the partially written archive. Used on cancellation
// and fatal errors; removal failures are swallowed, the temp file is
// junk either way.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.zw.Close()
	w.f.Close()
	_ = os.Remove(w.tmpPath)
}

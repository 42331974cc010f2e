package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"octpack/internal/fileutil"
	"octpack/internal/services"
	"octpack/internal/textutil"
)

// Extension is the OCTGN image pack suffix.
const Extension = ".o8c"

// epoch pins entry timestamps so archives are reproducible.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ArchiveName returns the pack file name for a set, e.g.
// "The Wilds of Rhovanion" -> "The-Wilds-of-Rhovanion.o8c".
func ArchiveName(setName string) string {
	stem := textutil.ArchiveStem(setName)
	if stem == "" {
		stem = "set"
	}
	return stem + Extension
}

// Zip archives every regular file under srcDir into dest and returns the
// number of entries written.
func Zip(ctx context.Context, srcDir, dest string) (int, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return 0, services.Wrap(services.ErrNotFound, "packager", "zip", srcDir, err)
	}
	if !info.IsDir() {
		return 0, services.Wrap(services.ErrValidation, "packager", "zip", srcDir+" is not a directory", nil)
	}

	var files []string
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", srcDir, err)
	}
	if len(files) == 0 {
		return 0, services.Wrap(services.ErrValidation, "packager", "zip", "no files to archive in "+srcDir, nil)
	}

	err = fileutil.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(srcDir, path)
			if err != nil {
				return fmt.Errorf("relative path for %s: %w", path, err)
			}
			if err := addFile(zw, path, filepath.ToSlash(rel)); err != nil {
				return err
			}
		}
		return zw.Close()
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, services.Wrap(services.ErrExternalTool, "packager", "zip", dest, err)
	}
	return len(files), nil
}

func addFile(zw *zip.Writer, path, name string) error {
	if strings.HasPrefix(name, "../") {
		return fmt.Errorf("entry %s escapes archive root", name)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: epoch,
	}
	header.SetMode(0o644)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

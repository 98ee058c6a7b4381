package artifact

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Archive is a packaged model bundle on local disk, ready for upload.
type Archive struct {
	Path      string
	SHA256    string
	SizeBytes int64
}

// Package writes the given files into a gzipped tarball at destPath. File
// names inside the archive are flattened to their base names, matching the
// layout serving containers expect (model file and entry script side by
// side at the archive root).
func Package(destPath string, filePaths ...string) (Archive, error) {
	if len(filePaths) == 0 {
		return Archive{}, fmt.Errorf("at least one file is required")
	}

	out, err := os.Create(destPath)
	if err != nil {
		return Archive{}, fmt.Errorf("failed to create archive %s: %w", destPath, err)
	}

	digest := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(out, digest))
	tw := tar.NewWriter(gz)

	// A half-written archive must not be left behind for the caller to
	// upload by mistake.
	fail := func(err error) (Archive, error) {
		tw.Close()
		gz.Close()
		out.Close()
		os.Remove(destPath)
		return Archive{}, err
	}

	for _, path := range filePaths {
		if err := addFile(tw, path); err != nil {
			return fail(err)
		}
	}

	if err := tw.Close(); err != nil {
		return fail(fmt.Errorf("failed to finalize tar: %w", err))
	}
	if err := gz.Close(); err != nil {
		return fail(fmt.Errorf("failed to finalize gzip: %w", err))
	}
	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return Archive{}, err
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return Archive{}, err
	}

	return Archive{
		Path:      destPath,
		SHA256:    hex.EncodeToString(digest.Sum(nil)),
		SizeBytes: info.Size(),
	}, nil
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file", path)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", path, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s into archive: %w", path, err)
	}
	return nil
}

// Unpack extracts an archive produced by Package into destDir. Entries with
// path separators are rejected; Package never emits them.
func Unpack(archivePath, destDir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("invalid gzip stream in %s: %w", archivePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var extracted []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid tar stream in %s: %w", archivePath, err)
		}
		if strings.ContainsAny(header.Name, `/\`) || header.Name == ".." {
			return nil, fmt.Errorf("unexpected path %q in archive", header.Name)
		}
		target := filepath.Join(destDir, header.Name)
		out, err := os.Create(target)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return nil, fmt.Errorf("failed to extract %s: %w", header.Name, err)
		}
		if err := out.Close(); err != nil {
			return nil, err
		}
		extracted = append(extracted, target)
	}
	return extracted, nil
}

// Package archive writes and restores snapshots of an object database
// working tree as zstd-compressed tarballs. Snapshots exclude git metadata:
// they are a plain backup of the current file state, usable without any
// repository.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Write streams srcDir as a tar.zst archive to dst. The .git directory is
// skipped; entry names are slash paths relative to srcDir.
func Write(dst io.Writer, srcDir string) error {
	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	tw := tar.NewWriter(enc)

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git/") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		return err
	})
	if err != nil {
		tw.Close()
		enc.Close()
		return fmt.Errorf("archive %q: %w", srcDir, err)
	}

	if err := tw.Close(); err != nil {
		enc.Close()
		return fmt.Errorf("archive: close tar: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("archive: close zstd: %w", err)
	}
	return nil
}

// Extract unpacks a tar.zst archive produced by Write into dstDir. Entry
// names escaping dstDir are rejected.
func Extract(src io.Reader, dstDir string) error {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	defer dec.Close()
	tr := tar.NewReader(dec)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}

		name := filepath.FromSlash(hdr.Name)
		target := filepath.Join(dstDir, name)
		rel, err := filepath.Rel(dstDir, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("extract: entry %q escapes destination", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %q: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("extract %q: %w", hdr.Name, err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return fmt.Errorf("extract %q: %w", hdr.Name, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("extract %q: %w", hdr.Name, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("extract %q: %w", hdr.Name, err)
			}
		default:
			// Symlinks and specials have no business in an object
			// database snapshot.
			return fmt.Errorf("extract: unsupported entry type %d for %q", hdr.Typeflag, hdr.Name)
		}
	}
}

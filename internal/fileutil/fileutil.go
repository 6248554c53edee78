package fileutil

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrDigestMismatch marks a verified copy or move whose destination digest
// did not match the source.
var ErrDigestMismatch = errors.New("digest mismatch")

// IsDigestMismatch reports whether err stems from digest verification.
func IsDigestMismatch(err error) bool {
	return errors.Is(err, ErrDigestMismatch)
}

// hashDestination is stubbed in tests to simulate a destination whose
// persisted bytes differ from the source.
var hashDestination = HashFile

// HashFile returns the hex-encoded SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// MD5File returns the hex-encoded MD5 digest of the file at path. MD5 is used
// where the remote side can only report MD5 sums.
func MD5File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)

	written, err := io.Copy(out, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	// Re-read the destination from disk so the digest reflects what the
	// filesystem actually persisted, not the bytes in flight.
	dstDigest, err := hashDestination(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("digest destination: %w", err)
	}
	if dstDigest != hex.EncodeToString(srcHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy %s to %s: %w", src, dst, ErrDigestMismatch)
	}

	return nil
}

// MoveFileVerified relocates src to dst, verifying the destination digest
// against the source digest before reporting success. A plain rename is
// attempted first; cross-device moves fall back to a verified copy followed
// by source removal. The source file is left untouched when the verified
// copy fails.
func MoveFileVerified(src, dst string) error {
	srcDigest, err := HashFile(src)
	if err != nil {
		return fmt.Errorf("digest source: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		dstDigest, err := HashFile(dst)
		if err != nil {
			return fmt.Errorf("digest destination: %w", err)
		}
		if dstDigest != srcDigest {
			return fmt.Errorf("move of %s: %w", filepath.Base(dst), ErrDigestMismatch)
		}
		return nil
	}

	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	dstDigest, err := HashFile(dst)
	if err != nil {
		return fmt.Errorf("digest destination: %w", err)
	}
	if dstDigest != srcDigest {
		_ = os.Remove(dst)
		return fmt.Errorf("move of %s: %w", filepath.Base(dst), ErrDigestMismatch)
	}
	return os.Remove(src)
}

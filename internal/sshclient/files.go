package sshclient

import (
	"fmt"
	"io"

	"github.com/pkg/sftp"
)

// fileTransfer moves files over an SFTP channel. It implements
// broker.FileTransfer.
type fileTransfer struct {
	client *sftp.Client
}

// Download opens the remote file for reading. The caller owns the returned
// reader and must close it.
func (f *fileTransfer) Download(path string) (io.ReadCloser, error) {
	file, err := f.client.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open remote file %s: %w", path, err)
	}
	return file, nil
}

// Upload creates or truncates the remote file and streams r into it.
func (f *fileTransfer) Upload(path string, r io.Reader) error {
	file, err := f.client.Create(path)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", path, err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return fmt.Errorf("write remote file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close remote file %s: %w", path, err)
	}
	return nil
}

// Close tears down the SFTP channel.
func (f *fileTransfer) Close() error {
	return f.client.Close()
}

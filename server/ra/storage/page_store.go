package storage

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/util"
)

// PageStore serializes pages to one file per (table, block) under a
// single directory. It is the only component that touches page files.
type PageStore struct {
	dir   string
	codec Codec
}

// NewPageStore opens a store rooted at dir using the named codec.
func NewPageStore(dir string, codecName string) (*PageStore, error) {
	codec, err := NewCodec(codecName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := util.EnsureDir(dir); err != nil {
		return nil, errors.Annotatef(err, "creating page dir %s", dir)
	}
	return &PageStore{dir: dir, codec: codec}, nil
}

// Dir is the directory holding the page files.
func (s *PageStore) Dir() string {
	return s.dir
}

// PageFilePath maps a page name to its file path.
func (s *PageStore) PageFilePath(pageName string) string {
	return filepath.Join(s.dir, pageName)
}

// WritePage persists the first nRows of rows under pageName. The write
// is atomic: a rename over the target replaces any previous version.
func (s *PageStore) WritePage(pageName string, rows [][]int64, nRows int) error {
	logger.Trace("PageStore::WritePage " + pageName)
	payload, err := s.codec.Compress(encodePage(rows, nRows))
	if err != nil {
		return errors.Annotatef(err, "encoding page %s", pageName)
	}

	target := s.PageFilePath(pageName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return errors.Annotatef(err, "writing page %s", pageName)
	}
	if err := os.Rename(tmp, target); err != nil {
		return errors.Annotatef(err, "publishing page %s", pageName)
	}
	return nil
}

// ReadPage loads pageName from disk.
func (s *PageStore) ReadPage(pageName string) (*Page, error) {
	logger.Trace("PageStore::ReadPage " + pageName)
	raw, err := os.ReadFile(s.PageFilePath(pageName))
	if err != nil {
		return nil, errors.Annotatef(err, "reading page %s", pageName)
	}
	payload, err := s.codec.Decompress(raw)
	if err != nil {
		return nil, errors.Annotatef(err, "decoding page %s", pageName)
	}
	page, err := decodePage(pageName, payload)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return page, nil
}

// DeletePage removes the file backing pageName.
func (s *PageStore) DeletePage(pageName string) error {
	logger.Trace("PageStore::DeletePage " + pageName)
	return errors.Trace(util.RemoveIfExists(s.PageFilePath(pageName)))
}

// RenamePage moves the file backing oldName under newName, replacing
// any file already there.
func (s *PageStore) RenamePage(oldName, newName string) error {
	logger.Trace("PageStore::RenamePage " + oldName + " -> " + newName)
	err := os.Rename(s.PageFilePath(oldName), s.PageFilePath(newName))
	return errors.Annotatef(err, "renaming page %s to %s", oldName, newName)
}

// DeleteFile removes an arbitrary file, tolerating a missing one.
func (s *PageStore) DeleteFile(path string) error {
	logger.Trace("PageStore::DeleteFile " + path)
	return errors.Trace(util.RemoveIfExists(path))
}

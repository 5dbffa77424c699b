// Package chtl_modstore implements a filesystem-backed chtl_resolve.ModuleStore:
// resolving an import path the way a CHTL project resolves it on disk,
// including extracting ".cmod" archives, per spec section 6's module
// resolution contract.
package chtl_modstore

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store resolves import paths against a real filesystem. OfficialModulePath
// is consulted before the calling file's own directory, matching the
// resolution order a bareword (extension-less) import follows.
type Store struct {
	OfficialModulePath string

	extracted map[string]string // cmod archive path -> extraction dir, cached for the process lifetime
}

func New(officialModulePath string) *Store {
	return &Store{OfficialModulePath: officialModulePath, extracted: map[string]string{}}
}

// Resolve implements chtl_resolve.ModuleStore. currentFileIdentity is the
// importing file's own resolved path; importPath is the raw import string.
func (s *Store) Resolve(currentFileIdentity string, importPath string) (string, string, bool) {
	path, ok := s.resolvePath(currentFileIdentity, importPath)
	if !ok {
		return "", "", false
	}
	entry, ok := s.handleCMod(path)
	if !ok {
		return "", "", false
	}
	contents, err := os.ReadFile(entry)
	if err != nil {
		return "", "", false
	}
	return entry, string(contents), true
}

// resolvePath implements the original loader's search order: an
// absolute/relative path is checked directly first; otherwise a bareword
// name is searched, in order, under the official module path, the calling
// file's sibling "module" directory, and the calling file's own directory —
// trying a ".cmod" extension before a ".chtl" extension at each stop.
func (s *Store) resolvePath(currentFileIdentity, importPath string) (string, bool) {
	if filepath.IsAbs(importPath) || strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../") {
		candidate := importPath
		if !filepath.IsAbs(importPath) {
			candidate = filepath.Join(filepath.Dir(currentFileIdentity), importPath)
		}
		if fileExists(candidate) {
			return candidate, true
		}
		return "", false
	}

	var searchDirs []string
	if s.OfficialModulePath != "" {
		searchDirs = append(searchDirs, s.OfficialModulePath)
	}
	callerDir := filepath.Dir(currentFileIdentity)
	searchDirs = append(searchDirs, filepath.Join(callerDir, "module"), callerDir)

	hasExt := filepath.Ext(importPath) != ""
	for _, dir := range searchDirs {
		if hasExt {
			full := filepath.Join(dir, importPath)
			if fileExists(full) {
				return full, true
			}
			continue
		}
		cmod := filepath.Join(dir, importPath+".cmod")
		if fileExists(cmod) {
			return cmod, true
		}
		chtl := filepath.Join(dir, importPath+".chtl")
		if fileExists(chtl) {
			return chtl, true
		}
	}
	return "", false
}

// handleCMod extracts a ".cmod" archive (a zip file laid out with a
// "src/<ModuleName>.chtl" entry point) into a cached temp directory and
// returns the entry point's path; any other path is returned unchanged.
func (s *Store) handleCMod(path string) (string, bool) {
	if !strings.EqualFold(filepath.Ext(path), ".cmod") {
		return path, true
	}
	if dir, ok := s.extracted[path]; ok {
		return entryPointOf(dir, path), true
	}

	dir, err := os.MkdirTemp("", "chtl-cmod-*")
	if err != nil {
		return "", false
	}
	if err := extractZip(path, dir); err != nil {
		return "", false
	}
	s.extracted[path] = dir

	entry := entryPointOf(dir, path)
	if !fileExists(entry) {
		return "", false
	}
	return entry, true
}

func entryPointOf(extractedDir, archivePath string) string {
	moduleName := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	return filepath.Join(extractedDir, "src", moduleName+".chtl")
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			continue // zip-slip guard: skip entries that escape destDir
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

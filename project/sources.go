package project

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// SourceFile is a source file selected by the project.
type SourceFile struct {
	// AbsPath is the absolute path to the file.
	AbsPath string

	// ReprPath is the path relative to the project root used in diagnostics
	// and to derive the module name of the file.
	ReprPath string
}

// SourceFiles returns the source files of the project.  The entry file is
// always first and the others follow in path order.  Hidden directories and
// the output directory are never searched.
func (p *Project) SourceFiles() ([]SourceFile, error) {
	entry, err := p.sourceFile(p.Entry)
	if err != nil {
		return nil, err
	}

	if p.SingleFile {
		return []SourceFile{entry}, nil
	}

	var globs []glob.Glob
	for _, pattern := range p.Sources {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid source pattern `%s`: %w", pattern, err)
		}

		globs = append(globs, g)
	}

	var files []SourceFile
	err = filepath.WalkDir(p.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != p.Root && (strings.HasPrefix(d.Name(), ".") || path == p.OutputDir) {
				return filepath.SkipDir
			}

			return nil
		}

		if path == p.Entry {
			return nil
		}

		sf, err := p.sourceFile(path)
		if err != nil {
			return err
		}

		rel := filepath.ToSlash(sf.ReprPath)
		for _, g := range globs {
			if g.Match(rel) {
				files = append(files, sf)
				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ReprPath < files[j].ReprPath
	})

	return append([]SourceFile{entry}, files...), nil
}

func (p *Project) sourceFile(path string) (SourceFile, error) {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil {
		return SourceFile{}, err
	}

	if strings.HasPrefix(rel, "..") {
		return SourceFile{}, fmt.Errorf("source file %s is outside of the project", path)
	}

	return SourceFile{AbsPath: path, ReprPath: rel}, nil
}

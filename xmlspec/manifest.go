package xmlspec

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/croixa/astrix/errs"
	"github.com/croixa/astrix/registry"
)

// MaxPathLength bounds manifest entries, matching the limit the language
// bindings enforce at their boundary.
const MaxPathLength = 4096

// ReadManifest returns the grammar file paths listed in a definitions
// manifest: one path per non-blank, non-comment line, resolved against the
// manifest's directory.
func ReadManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %v: %w", path, err, errs.ErrConfig)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var files []string
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		entry := strings.TrimSpace(sc.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		if len(entry) > MaxPathLength {
			return nil, fmt.Errorf("manifest %s:%d: path longer than %d bytes: %w",
				path, line, MaxPathLength, errs.ErrConfig)
		}
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		files = append(files, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("manifest %s: %v: %w", path, err, errs.ErrConfig)
	}

	return files, nil
}

// LoadManifest loads every grammar file the manifest lists into the builder.
//
// A file that fails to parse is reported in the joined error but does not
// stop the remaining files from loading, so the registry still answers for
// the categories that loaded cleanly.
func LoadManifest(path string, b *registry.Builder) error {
	files, err := ReadManifest(path)
	if err != nil {
		return err
	}

	var errList []error
	for _, file := range files {
		if err := LoadFile(file, b); err != nil {
			errList = append(errList, err)
		}
	}

	return errors.Join(errList...)
}

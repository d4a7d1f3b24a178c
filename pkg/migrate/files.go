package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

type sqlFile struct {
	version int64
	name    string
}

// scan returns the SQL migrations in fsys sorted by version. Non-SQL entries
// are ignored; a badly named or duplicated SQL file is an error.
func scan(fsys fs.FS) ([]sqlFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	files := make([]sqlFile, 0, len(entries))
	byVersion := map[int64]string{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		m := fileNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("%s: want <%s>_<name>.sql", e.Name(), versionLayout)
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("%s and %s share version %d", prev, e.Name(), version)
		}
		byVersion[version] = e.Name()
		files = append(files, sqlFile{version: version, name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// Validate checks names and goose annotations of every migration in fsys.
func Validate(fsys fs.FS) error {
	files, err := scan(fsys)
	if err != nil {
		return err
	}
	for _, f := range files {
		body, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			return err
		}
		text := string(body)
		up := strings.Index(text, "-- +goose Up")
		down := strings.Index(text, "-- +goose Down")
		switch {
		case up < 0:
			return fmt.Errorf("%s: no -- +goose Up section", f.name)
		case down < 0:
			return fmt.Errorf("%s: no -- +goose Down section", f.name)
		case down < up:
			return fmt.Errorf("%s: Down section precedes Up", f.name)
		}
	}
	return nil
}

func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("migrations dir is required")
	}
	return Validate(os.DirFS(dir))
}

// CreateSQLMigration writes an empty goose migration into dir and returns its
// path. The version is the current UTC time, moved past the newest existing
// migration when the clock would not sort after it.
func CreateSQLMigration(dir, name string) (string, error) {
	slug := strings.Trim(unsafeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if dir == "" || slug == "" {
		return "", fmt.Errorf("migration dir and a usable name are required (got %q)", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	existing, err := scan(os.DirFS(dir))
	if err != nil {
		return "", err
	}

	stamp := time.Now().UTC()
	if n := len(existing); n > 0 {
		latest, _ := time.Parse(versionLayout, strconv.FormatInt(existing[n-1].version, 10))
		if !stamp.After(latest) {
			stamp = latest.Add(time.Second)
		}
	}

	target := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", stamp.Format(versionLayout), slug))
	body := "-- +goose Up\n-- +goose StatementBegin\n\n-- +goose StatementEnd\n\n" +
		"-- +goose Down\n-- +goose StatementBegin\n\n-- +goose StatementEnd\n"
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		return "", err
	}
	return target, f.Close()
}

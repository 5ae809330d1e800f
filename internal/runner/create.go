package runner

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/deltaeng/delta/internal/change"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Kind selects which template pair Create renders.
type Kind string

const (
	KindModule Kind = "module"
	KindScript Kind = "script"
	KindShell  Kind = "shell"
)

const timestampLayout = "20060102150405"

var extensionByKind = map[Kind]string{
	KindModule: "js",
	KindScript: "js",
	KindShell:  "sh",
}

var modeByKind = map[Kind]os.FileMode{
	KindModule: 0o644,
	KindScript: 0o644,
	KindShell:  0o755,
}

type templateData struct {
	Timestamp string
	Name      string
}

// Create renders a paired <timestamp>.<name>.commit.<ext> and
// <timestamp>.<name>.rollback.<ext> from the templates directory into
// dir (spec §4.F "create"). now is injected so callers control the
// timestamp deterministically in tests.
func Create(dir string, name string, kind Kind, now time.Time) (commitPath, rollbackPath string, err error) {
	ext, ok := extensionByKind[kind]
	if !ok {
		return "", "", fmt.Errorf("runner: unknown template kind %q", kind)
	}
	mode := modeByKind[kind]

	data := templateData{Timestamp: now.UTC().Format(timestampLayout), Name: name}

	commitPath, err = renderOne(dir, fmt.Sprintf("%s.commit.tmpl", kind), data, fmt.Sprintf("%s.%s.commit.%s", data.Timestamp, name, ext), mode)
	if err != nil {
		return "", "", err
	}
	rollbackPath, err = renderOne(dir, fmt.Sprintf("%s.rollback.tmpl", kind), data, fmt.Sprintf("%s.%s.rollback.%s", data.Timestamp, name, ext), mode)
	if err != nil {
		return "", "", err
	}
	return commitPath, rollbackPath, nil
}

func renderOne(dir, templateName string, data templateData, outName string, mode os.FileMode) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/"+templateName)
	if err != nil {
		return "", fmt.Errorf("runner: loading template %s: %w", templateName, err)
	}

	out := filepath.Join(dir, outName)
	f, err := os.OpenFile(out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return "", fmt.Errorf("runner: creating %s: %w", out, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("runner: rendering %s: %w", out, err)
	}
	if err := os.Chmod(out, mode); err != nil {
		return "", fmt.Errorf("runner: setting mode on %s: %w", out, err)
	}
	return out, nil
}

// CreateFilter returns a change.Filter matching the artifact pair
// Create just produced, for callers that want to immediately locate it
// through a Tracker scan.
func CreateFilter(name string) change.Filter {
	return change.Filter{Name: name, Type: change.FilterInclude}
}

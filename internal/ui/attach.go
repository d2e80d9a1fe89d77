package ui

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dori/taskdeck/internal/model"
)

// ParseAttachment turns a path or URL typed into the edit form into an
// attachment. Local files are referenced by a file:// URL and carry their
// size; links carry none.
func ParseAttachment(ref string) (model.Attachment, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Attachment{}, false
	}

	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil || u.Host == "" && u.Scheme != "file" {
			return model.Attachment{}, false
		}
		name := path.Base(u.Path)
		if name == "." || name == "/" {
			name = u.Host
		}
		return model.Attachment{Name: name, URL: ref}, true
	}

	abs, err := filepath.Abs(ref)
	if err != nil {
		return model.Attachment{}, false
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return model.Attachment{}, false
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return model.Attachment{Name: info.Name(), URL: u.String(), Size: info.Size()}, true
}

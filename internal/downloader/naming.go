package downloader

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

const (
	// MaxNameLen caps every file and directory name written.
	MaxNameLen = 200
	// maxStemLen caps the part of a URL file name kept before its extension.
	maxStemLen = 150
	// Placeholder replaces names that sanitize to nothing.
	Placeholder = "unnamed"
	// Uncategorized holds rows without a local plan.
	Uncategorized = "uncategorized"

	unsafeChars = `<>:"/\|?*`
)

// documentExtensions are URL extensions trusted as the real file type.
var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ods": true, ".odt": true, ".rtf": true, ".txt": true, ".csv": true,
	".htm": true, ".html": true, ".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".tif": true, ".tiff": true, ".zip": true,
}

var kindExtensions = map[model.FileKind]string{
	model.KindPDF:   ".pdf",
	model.KindHTML:  ".html",
	model.KindDoc:   ".doc",
	model.KindImage: ".jpg",
}

const fallbackExtension = ".bin"

// Sanitize makes s safe as a single path element: filesystem-unsafe and
// control characters become "_", leading and trailing dots and spaces go,
// and the result is at most max bytes. It never returns an empty string.
func Sanitize(s string, max int) string {
	if max <= 0 {
		max = MaxNameLen
	}
	s = strings.ToValidUTF8(s, "_")
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(unsafeChars, r) {
			return '_'
		}
		return r
	}, s)
	s = strings.Trim(s, ". ")
	if len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = strings.Trim(s[:cut], ". ")
	}
	if s == "" {
		if len(Placeholder) > max {
			return Placeholder[:max]
		}
		return Placeholder
	}
	return s
}

// PlanDir is the directory for a row's local plan under root.
func PlanDir(root, localPlan string) string {
	if strings.TrimSpace(localPlan) == "" {
		return filepath.Join(root, Uncategorized)
	}
	return filepath.Join(root, Sanitize(localPlan, MaxNameLen))
}

// FileName derives the local file name for rec fetched from src. A URL whose
// path ends in a known document extension names the file; otherwise the name
// comes from the document reference and name plus an extension for the kind.
func FileName(rec model.CatalogRecord, src string) string {
	if base := urlBase(src); base != "" {
		ext := path.Ext(base)
		if documentExtensions[strings.ToLower(ext)] {
			stem := Sanitize(strings.TrimSuffix(base, ext), maxStemLen)
			return withExtension(rec.DocReference+"_"+stem, ext)
		}
	}
	ext, ok := kindExtensions[rec.FileKind]
	if !ok {
		ext = fallbackExtension
	}
	return withExtension(rec.DocReference+"_"+rec.DocName, ext)
}

// withExtension sanitizes stem so that stem+ext fits MaxNameLen. ext must
// already be safe.
func withExtension(stem, ext string) string {
	return Sanitize(stem, MaxNameLen-len(ext)) + ext
}

func urlBase(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

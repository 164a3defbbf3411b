package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the extracted text of one document page. Number is 1-indexed.
type Page struct {
	Number int
	Text   string
}

// Loader extracts per-page text from a document.
type Loader interface {
	Load(path string) ([]Page, error)
}

// PDFLoader reads text page by page with ledongthuc/pdf. Pages without text
// are skipped.
type PDFLoader struct{}

func (PDFLoader) Load(path string) (pages []Page, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	// the pdf package panics on some malformed streams
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("parse %s: %v", filepath.Base(path), rec)
		}
	}()

	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", i, filepath.Base(path), err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// listPDFs returns the *.pdf files of dir sorted by name. A missing dir yields nothing.
func listPDFs(dir string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []os.FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// DocumentTitle derives a readable title from a file name.
func DocumentTitle(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	return strings.TrimSpace(stem)
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

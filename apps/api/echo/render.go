package echoapi

import (
	"bytes"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	appfs "github.com/trezcool/certify/fs"
)

const pagesDir = "assets/templates/pages"

// renderer renders the embedded page templates. Files starting with "_" are partials,
// parsed along with every page; a page is rendered through the "layout" template.
type renderer struct {
	pages  map[string]*template.Template
	banner *template.Template
}

var _ echo.Renderer = (*renderer)(nil)

func newRenderer() (*renderer, error) {
	layout := path.Join(pagesDir, "_layout.gohtml")
	banner := path.Join(pagesDir, "_banner.gohtml")

	fps, err := fs.Glob(appfs.FS, path.Join(pagesDir, "*.gohtml"))
	if err != nil {
		return nil, errors.Wrap(err, "listing page templates")
	}

	r := &renderer{pages: make(map[string]*template.Template, len(fps))}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := template.ParseFS(appfs.FS, layout, banner, fp)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing page %s", fname)
		}
		r.pages[strings.TrimSuffix(fname, ".gohtml")] = tmpl.Option("missingkey=error")
	}

	if r.banner, err = template.ParseFS(appfs.FS, banner); err != nil {
		return nil, errors.Wrap(err, "parsing banner")
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("page template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

func (r *renderer) renderBanner(data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.banner.ExecuteTemplate(&buf, "banner", data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil // nolint:gosec
}

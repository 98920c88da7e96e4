package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/garrettladley/imisrelay/internal/version"
	"github.com/garrettladley/imisrelay/internal/xerrors"
	"github.com/garrettladley/imisrelay/internal/xhttp"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type Index struct{}

func NewIndex() *Index {
	return &Index{}
}

type indexData struct {
	Version string
}

// HandleIndex handles GET / requests with the dashboard page.
func (h *Index) HandleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, indexData{Version: version.Get()}); err != nil {
		xerrors.WriteError(r.Context(), w, xerrors.Internal(xerrors.WithCause(err)))
		return
	}

	xhttp.SetHeaderContentTypeTextHTML(w)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

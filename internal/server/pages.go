package server

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/iwvelando/demand-dashboard/internal/assistant"
	"github.com/iwvelando/demand-dashboard/internal/auth"
	"github.com/iwvelando/demand-dashboard/internal/chart"
	"github.com/iwvelando/demand-dashboard/internal/dashboard"
	"github.com/iwvelando/demand-dashboard/pkg/format"
	"go.uber.org/zap"
)

// pageSet holds one template per page, each parsed with the shared layout.
type pageSet map[string]*template.Template

var pageNames = []string{"dashboard", "chatbot", "about"}

var templateFuncs = template.FuncMap{
	"kilobytes": format.Kilobytes,
}

func loadPages() (pageSet, error) {
	pages := make(pageSet, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return pages, nil
}

type layoutData struct {
	Title   string
	Active  string
	Version string
	User    string
}

type dashboardPageData struct {
	layoutData
	State    dashboard.State
	Metrics  metricsResponse
	MaxBytes int64
}

type chatbotPageData struct {
	layoutData
	Transcript []assistant.Message
	HasData    bool
}

func (h *handler) layout(r *http.Request, title, active string) layoutData {
	data := layoutData{Title: title, Active: active, Version: h.version}
	if claims, ok := auth.FromContext(r.Context()); ok {
		data.User = claims.Email
	}
	return data
}

// render executes the page into a buffer first so a template error never
// produces a half-written page.
func (h *handler) render(w http.ResponseWriter, name string, data interface{}) {
	tmpl, ok := h.pages[name]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.logger.Error("failed to render page",
			zap.String("op", "server.render"),
			zap.String("page", name),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *handler) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	h.render(w, "dashboard", dashboardPageData{
		layoutData: h.layout(r, "Dashboard", "dashboard"),
		State:      h.dashboard.State(),
		Metrics:    h.currentMetrics(r),
		MaxBytes:   h.maxUploadSize,
	})
}

func (h *handler) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUploadForm"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	upload, ok := h.readUpload(w, r, op)
	if !ok {
		return
	}
	defer upload.close(h.logger, op)

	info := dashboard.FileInfo{Name: upload.header.Filename, Size: upload.header.Size}
	if _, err := h.dashboard.UploadFile(detached(r), info, upload.file); err != nil {
		if errors.Is(err, dashboard.ErrUploadInProgress) {
			h.respondErrorWithOp(w, http.StatusConflict, err.Error(), op)
			return
		}
		// The failure notification is shown on the dashboard.
		h.logger.Warn("form upload failed",
			zap.String("op", op),
			zap.Error(err),
		)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handler) handleClearForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if _, err := h.dashboard.Clear(r.Context()); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleClearForm")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handler) handleChartPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	var buf bytes.Buffer
	if err := chart.Render(&buf, h.currentSeries(r), chart.Options{Title: "Demand Forecast & Optimization"}); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleChartPage")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *handler) handleChatbotPage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.render(w, "chatbot", chatbotPageData{
			layoutData: h.layout(r, "AI Assistant", "chatbot"),
			Transcript: h.assistant.Transcript(),
			HasData:    h.dashboard.State().HasData,
		})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), "server.handleChatbotPage")
			return
		}
		// Blank input is ignored.
		if _, err := h.assistant.Ask(detached(r), r.PostFormValue("message")); err != nil &&
			!errors.Is(err, assistant.ErrEmptyQuestion) {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleChatbotPage")
			return
		}
		http.Redirect(w, r, "/chatbot", http.StatusSeeOther)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *handler) handleAboutPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	h.render(w, "about", h.layout(r, "About", "about"))
}

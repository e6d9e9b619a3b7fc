package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/catalog"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// CatalogHandler serves the static catalog. Nothing here touches storage.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// CatalogResponse lists categories, skills and daily challenges.
type CatalogResponse struct {
	Categories []catalog.CategoryInfo `json:"categories"`
	Skills     []catalog.Skill        `json:"skills"`
	Challenges []string               `json:"challenges"`
}

// HandleCatalog returns categories, skills and challenges in display order.
//
// HTTP: GET /api/catalog
func (h *CatalogHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{
		Categories: h.catalog.CategoryInfos(),
		Skills:     h.catalog.Skills(),
		Challenges: h.catalog.Challenges(),
	})
}

// HandleTitles returns every title with its unlock level.
//
// HTTP: GET /api/catalog/titles
func (h *CatalogHandler) HandleTitles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.AllTitles())
}

// HandleBadges returns every badge with its unlock condition.
//
// HTTP: GET /api/catalog/badges
func (h *CatalogHandler) HandleBadges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.AllBadges())
}

// HandleSearch fuzzy-matches skills, titles and badges by name.
//
// HTTP: GET /api/catalog/search?q=iron&limit=5
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, apperror.ValidationFailed("q", "q is required"))
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			writeError(w, apperror.ValidationFailed("limit", "limit must be between 1 and "+strconv.Itoa(maxSearchLimit)))
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, h.catalog.Search(q, limit))
}

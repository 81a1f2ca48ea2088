package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/plugin/ai"
	"github.com/otakulab/animesommelier/plugin/jikan"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
)

type searchCatalogResponse struct {
	Results []*jikan.Anime `json:"results"`
	Total   int            `json:"total"`
}

// catalogEntryBody is a catalog record plus the cache timestamp when
// the read was served from the cache.
type catalogEntryBody struct {
	*jikan.Anime
	CachedTs int64 `json:"cachedTs,omitempty"`
}

type listPersonasResponse struct {
	Personas []string `json:"personas"`
}

// SearchCatalog searches the anime catalog by free text.
func (s *APIV1Service) SearchCatalog(c echo.Context) error {
	limit := intQueryParam(c, "limit", defaultSearchLimit)
	if limit < 1 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	records, total, err := s.CatalogService.SearchByText(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return s.errorResponse(c, err)
	}

	results := make([]*jikan.Anime, 0, len(records))
	for _, record := range records {
		results = append(results, record.Anime)
	}
	return c.JSON(http.StatusOK, &searchCatalogResponse{Results: results, Total: total})
}

// GetCatalogEntry returns one catalog record by its MyAnimeList id.
func (s *APIV1Service) GetCatalogEntry(c echo.Context) error {
	malID, err := strconv.Atoi(c.Param("id"))
	if err != nil || malID <= 0 {
		return s.errorResponse(c, apperrors.InvalidArgument("id must be a positive integer"))
	}

	record, err := s.CatalogService.ResolveByID(c.Request().Context(), malID)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &catalogEntryBody{Anime: record.Anime, CachedTs: record.CachedTs})
}

// ListPersonas returns the closed set of persona types.
func (s *APIV1Service) ListPersonas(c echo.Context) error {
	types := ai.PersonaTypes()
	personas := make([]string, 0, len(types))
	for _, t := range types {
		personas = append(personas, string(t))
	}
	return c.JSON(http.StatusOK, &listPersonasResponse{Personas: personas})
}

package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/services"
)

const searchDefaultLimit = 20

type SearchHandler struct {
	log           *logger.Logger
	search        services.SearchService
	filterOptions services.FilterOptionsService
}

func NewSearchHandler(log *logger.Logger, search services.SearchService, filterOptions services.FilterOptionsService) *SearchHandler {
	handlerLog := log.With("handler", "SearchHandler")
	return &SearchHandler{log: handlerLog, search: search, filterOptions: filterOptions}
}

func (sh *SearchHandler) Search(c *gin.Context) {
	filters, err := parseSearchFilters(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	resp, err := sh.search.Search(c.Request.Context(), filters)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, resp)
}

func (sh *SearchHandler) FilterOptions(c *gin.Context) {
	options, err := sh.filterOptions.Get(c.Request.Context())
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, options)
}

func parseSearchFilters(c *gin.Context) (services.SearchFilters, error) {
	filters := services.SearchFilters{
		Query:     c.Query("q"),
		Gender:    c.Query("gender"),
		SkinColor: c.Query("skin_color"),
		Sort:      c.Query("sort"),
		Limit:     searchDefaultLimit,
	}

	var err error
	if filters.AgeMin, err = queryInt(c, "age_min"); err != nil {
		return filters, err
	}
	if filters.AgeMax, err = queryInt(c, "age_max"); err != nil {
		return filters, err
	}
	if filters.DangerMin, err = queryInt(c, "danger_min"); err != nil {
		return filters, err
	}
	if filters.DangerMax, err = queryInt(c, "danger_max"); err != nil {
		return filters, err
	}
	if filters.HeightMin, err = queryFloat(c, "height_min"); err != nil {
		return filters, err
	}
	if filters.HeightMax, err = queryFloat(c, "height_max"); err != nil {
		return filters, err
	}
	if filters.Lat, err = queryFloat(c, "lat"); err != nil {
		return filters, err
	}
	if filters.Lon, err = queryFloat(c, "lon"); err != nil {
		return filters, err
	}

	if raw := strings.TrimSpace(c.Query("has_photo")); raw != "" {
		hasPhoto, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return filters, apierr.Validationf("invalid has_photo %q", raw)
		}
		filters.HasPhoto = &hasPhoto
	}
	if limit, limitErr := queryInt(c, "limit"); limitErr != nil {
		return filters, limitErr
	} else if limit != nil {
		filters.Limit = *limit
	}
	if offset, offsetErr := queryInt(c, "offset"); offsetErr != nil {
		return filters, offsetErr
	} else if offset != nil {
		filters.Offset = *offset
	}

	return filters, nil
}

func queryInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apierr.Validationf("invalid %s %q", key, raw)
	}
	return &v, nil
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apierr.Validationf("invalid %s %q", key, raw)
	}
	return &v, nil
}

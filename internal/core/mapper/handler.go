package mapper

import (
	"github.com/gofiber/fiber/v2"

	"enricher/internal/utils/parser"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

type discoverParams struct {
	URL               string `form:"url"`
	Depth             int    `form:"depth"`
	MaxLinks          int    `form:"max_links"`
	IncludeSubdomains bool   `form:"include_subdomains"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type discoverResponse struct {
	Success bool     `json:"success"`
	URL     string   `json:"url"`
	Links   []string `json:"links"`
}

func (h *Handler) HandleDiscover(c *fiber.Ctx) error {
	var p discoverParams
	if err := parser.ParseQuery(c, &p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid query"})
	}
	if p.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "url is required"})
	}
	res, err := h.service.MapURL(c.Context(), Request{
		URL:               p.URL,
		Depth:             p.Depth,
		LinkLimit:         p.MaxLinks,
		IncludeSubdomains: p.IncludeSubdomains,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}
	return c.JSON(discoverResponse{Success: true, URL: p.URL, Links: res.Links})
}
